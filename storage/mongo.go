package storage

import (
	"context"
	"log"
	"os"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Mongo holds the reporting mirror database. It is optional: when MONGODB_URI
// is unset the mirror worker leaves outbox rows pending instead of dropping
// them, so nothing is lost while the mirror is down.
var Mongo *mongo.Database

func InitializeMongo() {
	uri := os.Getenv("MONGODB_URI")
	if uri == "" {
		log.Println("MONGODB_URI not set, mirror store disabled (outbox rows will stay pending)")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		log.Println("Mongo mirror connection failed:", err)
		return
	}

	dbName := os.Getenv("MONGODB_DATABASE")
	if dbName == "" {
		dbName = "konchamar_reporting"
	}

	Mongo = client.Database(dbName)
	log.Println("Mongo mirror initialized, database:", dbName)
}
