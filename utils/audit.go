package utils

import (
	"encoding/json"

	"github.com/countessevian/konchamar/models"
	"github.com/countessevian/konchamar/storage"

	"github.com/kataras/iris/v12"
	"github.com/kataras/iris/v12/middleware/jwt"
)

// Audit records an admin action with optional before/after snapshots.
// resourceRef is a reservation code or a numeric id rendered as string.
func Audit(ctx iris.Context, action, resourceType, resourceRef string, before interface{}, after interface{}) {
	var beforeStr, afterStr string
	if before != nil {
		if b, err := json.Marshal(before); err == nil {
			beforeStr = string(b)
		}
	}
	if after != nil {
		if a, err := json.Marshal(after); err == nil {
			afterStr = string(a)
		}
	}
	var adminID uint
	if tok := jwt.Get(ctx); tok != nil {
		if at, ok := tok.(*AccessToken); ok {
			adminID = at.ID
		}
	}
	entry := models.AuditLog{
		AdminUserID:  adminID,
		Action:       action,
		ResourceType: resourceType,
		ResourceRef:  resourceRef,
		BeforeJSON:   beforeStr,
		AfterJSON:    afterStr,
		IPAddress:    ClientIP(ctx),
	}
	storage.DB.Create(&entry)
}
