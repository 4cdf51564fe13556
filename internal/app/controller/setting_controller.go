package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kiplystart/kiplystart-backend/internal/app/model"
	"github.com/kiplystart/kiplystart-backend/internal/app/service"
	apperrors "github.com/kiplystart/kiplystart-backend/internal/errors"
	"github.com/kiplystart/kiplystart-backend/internal/middleware"
)

type SettingController struct {
	settingService service.SettingService
}

func NewSettingController(settingService service.SettingService) *SettingController {
	return &SettingController{
		settingService: settingService,
	}
}

// GetStoreInfo exposes the settings the storefront needs
// GET /api/v1/store
func (ctrl *SettingController) GetStoreInfo(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"store_name":       ctrl.settingService.Get(model.SettingStoreName),
		"checkout_enabled": ctrl.settingService.CheckoutEnabled(),
	})
}

// GetSettings lists every setting (Admin only)
// GET /api/v1/admin/settings
func (ctrl *SettingController) GetSettings(c *gin.Context) {
	settings, err := ctrl.settingService.GetAll()
	if err != nil {
		middleware.GetLoggerFromContext(c).Error("Failed to fetch settings", err, nil)
		apperrors.InternalError(c, "")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"settings": settings,
	})
}

// UpdateSettings upserts the given settings (Admin only)
// PUT /api/v1/admin/settings
func (ctrl *SettingController) UpdateSettings(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var req map[string]string
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid settings request", map[string]interface{}{
			"error": err.Error(),
		})
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Configuración inválida")
		return
	}

	settings, err := ctrl.settingService.Update(req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUnknownSetting):
			apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Configuración desconocida")
		case errors.Is(err, service.ErrInvalidSetting):
			apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Valor de configuración inválido")
		default:
			log.Error("Failed to update settings", err, nil)
			apperrors.InternalError(c, "")
		}
		return
	}

	userID, _ := middleware.GetUserID(c)
	log.Info("Settings updated", map[string]interface{}{
		"user_id": userID,
		"keys":    len(req),
	})
	c.JSON(http.StatusOK, gin.H{
		"settings": settings,
	})
}
