package routes

import (
	"encoding/json"

	"github.com/countessevian/konchamar/models"
	"github.com/countessevian/konchamar/services"
	"github.com/countessevian/konchamar/storage"
	"github.com/countessevian/konchamar/utils"

	"github.com/kataras/iris/v12"
	"golang.org/x/exp/slices"
	"gorm.io/datatypes"
)

// GetAccommodations lists active accommodation reference data for the
// marketing site and booking wizard.
func GetAccommodations(ctx iris.Context) {
	var accommodations []models.Accommodation
	result := storage.DB.Where("is_active = ?", true).Order("base_price ASC").Find(&accommodations)

	if result.Error != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	ctx.JSON(iris.Map{
		"success": true,
		"data":    accommodations,
	})
}

func GetAccommodation(ctx iris.Context) {
	id := ctx.Params().Get("id")

	var accommodation models.Accommodation
	if err := storage.DB.First(&accommodation, id).Error; err != nil {
		utils.CreateError(iris.StatusNotFound, "Not Found", "Accommodation not found", ctx)
		return
	}

	ctx.JSON(iris.Map{
		"success": true,
		"data":    accommodation,
	})
}

type CreateAccommodationInput struct {
	Type        string   `json:"type" validate:"required"`
	Name        string   `json:"name" validate:"required"`
	Description string   `json:"description" validate:"required"`
	Capacity    int      `json:"capacity" validate:"required,min=1"`
	BasePrice   float64  `json:"basePrice" validate:"required,min=0"`
	Amenities   []string `json:"amenities"`
	Images      []string `json:"images"`
}

// CreateAccommodation adds reference data (admin only).
func CreateAccommodation(ctx iris.Context) {
	var input CreateAccommodationInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	if !slices.Contains(models.AccommodationTypes, input.Type) {
		utils.CreateError(iris.StatusBadRequest, "Validation Error", "Invalid accommodation type", ctx)
		return
	}

	accommodation := models.Accommodation{
		Type:        input.Type,
		Name:        input.Name,
		Description: input.Description,
		Capacity:    input.Capacity,
		BasePrice:   input.BasePrice,
		IsActive:    true,
	}
	accommodation.Amenities = mustJSON(input.Amenities)
	accommodation.Images = mustJSON(input.Images)

	if err := storage.DB.Create(&accommodation).Error; err != nil {
		utils.CreateInternalServerError(ctx)
		return
	}

	services.EnqueueAccommodationSync(storage.DB, &accommodation)
	utils.Audit(ctx, "accommodation.create", "accommodation", accommodation.Name, nil, accommodation)

	ctx.JSON(iris.Map{
		"success": true,
		"data":    accommodation,
	})
}

func mustJSON(items []string) datatypes.JSON {
	if items == nil {
		items = []string{}
	}
	b, _ := json.Marshal(items)
	return datatypes.JSON(b)
}
