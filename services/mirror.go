package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/countessevian/konchamar/models"
	"github.com/countessevian/konchamar/storage"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// MirrorService drains the sync outbox into the document mirror used for
// reporting. Postgres stays the source of truth; a failed mirror write is
// retried and stays visible on the outbox row instead of vanishing into a
// log line.
type MirrorService struct {
	DB          *gorm.DB
	Interval    time.Duration
	MaxAttempts int
}

func NewMirrorService(db *gorm.DB) *MirrorService {
	interval := 30 * time.Second
	if v := os.Getenv("MIRROR_SYNC_INTERVAL_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			interval = time.Duration(n) * time.Second
		}
	}
	return &MirrorService{DB: db, Interval: interval, MaxAttempts: 5}
}

func (s *MirrorService) Start() {
	go func() {
		ticker := time.NewTicker(s.Interval)
		defer ticker.Stop()
		for range ticker.C {
			if err := s.Drain(); err != nil {
				log.Println("Mirror drain error:", err)
			}
		}
	}()
}

// Drain pushes pending and retryable failed rows to the mirror. Without a
// mirror connection rows simply stay pending.
func (s *MirrorService) Drain() error {
	if storage.Mongo == nil {
		return nil
	}

	var rows []models.SyncOutbox
	err := s.DB.
		Where("status = ? OR (status = ? AND attempts < ?)", models.OutboxPending, models.OutboxFailed, s.MaxAttempts).
		Order("id ASC").Limit(100).Find(&rows).Error
	if err != nil {
		return err
	}

	for i := range rows {
		row := &rows[i]
		if err := s.push(row); err != nil {
			row.Status = models.OutboxFailed
			row.Attempts++
			row.LastError = err.Error()
			s.DB.Save(row)
			continue
		}
		now := time.Now()
		row.Status = models.OutboxDone
		row.Attempts++
		row.LastError = ""
		row.SyncedAt = &now
		s.DB.Save(row)
	}

	return nil
}

func (s *MirrorService) push(row *models.SyncOutbox) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	collection := storage.Mongo.Collection(row.Resource + "s")

	var doc bson.M
	if err := json.Unmarshal(row.Payload, &doc); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}

	if deleted, _ := doc["deleted"].(bool); deleted {
		_, err := collection.DeleteOne(ctx, bson.M{"_ref": row.ResourceRef})
		return err
	}

	doc["_ref"] = row.ResourceRef
	_, err := collection.ReplaceOne(ctx,
		bson.M{"_ref": row.ResourceRef},
		doc,
		options.Replace().SetUpsert(true))
	return err
}

func enqueue(db *gorm.DB, resource, ref string, payload interface{}) {
	b, err := json.Marshal(payload)
	if err != nil {
		log.Println("Outbox enqueue failed:", err)
		return
	}
	row := models.SyncOutbox{
		Resource:    resource,
		ResourceRef: ref,
		Payload:     datatypes.JSON(b),
		Status:      models.OutboxPending,
	}
	if err := db.Create(&row).Error; err != nil {
		log.Println("Outbox enqueue failed:", err)
	}
}

// EnqueueReservationSync queues the current reservation snapshot for the
// reporting mirror. Called after every reservation mutation.
func EnqueueReservationSync(db *gorm.DB, reservation *models.Reservation) {
	enqueue(db, "reservation", reservation.ReservationID, reservation)
}

func EnqueueReservationDelete(db *gorm.DB, reservationID string) {
	enqueue(db, "reservation", reservationID, map[string]interface{}{"deleted": true})
}

func EnqueueAccommodationSync(db *gorm.DB, accommodation *models.Accommodation) {
	enqueue(db, "accommodation", strconv.FormatUint(uint64(accommodation.ID), 10), accommodation)
}

// EnqueueAvailabilitySync snapshots one (accommodation, day) counter.
func EnqueueAvailabilitySync(db *gorm.DB, accommodationID uint, day time.Time) {
	var availability models.Availability
	if err := db.Where("accommodation_id = ? AND date = ?", accommodationID, day).First(&availability).Error; err != nil {
		return
	}
	ref := fmt.Sprintf("%d:%s", accommodationID, day.Format("2006-01-02"))
	enqueue(db, "availability", ref, availability)
}
