package controllers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"otoil-backend/models"
	"otoil-backend/services"
	"otoil-backend/store"
	"otoil-backend/utils"
)

// FeeInput accepts a fee either as a JSON number or as text typed in Turkish
// notation. Anything unusable becomes 0.
type FeeInput float64

func (f *FeeInput) UnmarshalJSON(data []byte) error {
	*f = 0
	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		*f = FeeInput(utils.ParseFee(text))
		return nil
	}
	var number float64
	if err := json.Unmarshal(data, &number); err == nil && number > 0 {
		*f = FeeInput(number)
	}
	return nil
}

type RecordInput struct {
	CustomerName    string   `json:"customerName"`
	Phone           string   `json:"phone"`
	Plate           string   `json:"plate"`
	VehicleModel    string   `json:"vehicleModel"`
	ServiceDate     string   `json:"serviceDate"`
	WorkPerformed   string   `json:"workPerformed"`
	CheckupNotes    string   `json:"checkupNotes"`
	Fee             FeeInput `json:"fee"`
	StaffName       string   `json:"staffName"`
	NextServiceDate string   `json:"nextServiceDate"`
}

// validationError carries the inline message shown next to the form.
type validationError struct {
	message string
	fields  []string
}

func (e *validationError) Error() string { return e.message }

// apply validates input and copies it onto record. nextServiceDate is derived
// from the service date unless the input names one explicitly and allowExplicit is set.
func (h *Handler) apply(input RecordInput, record *models.ServiceRecord, allowExplicit bool) error {
	var missing []string
	required := []struct {
		name  string
		value string
	}{
		{"customerName", input.CustomerName},
		{"plate", input.Plate},
		{"vehicleModel", input.VehicleModel},
		{"serviceDate", input.ServiceDate},
		{"workPerformed", input.WorkPerformed},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return &validationError{message: "Lütfen tüm zorunlu alanları doldurun.", fields: missing}
	}

	serviceDate, err := utils.ParseServiceDate(input.ServiceDate, h.location())
	if err != nil {
		return &validationError{message: "Geçersiz hizmet tarihi.", fields: []string{"serviceDate"}}
	}
	next := services.DeriveNextServiceDate(serviceDate)
	if allowExplicit && strings.TrimSpace(input.NextServiceDate) != "" {
		next, err = utils.ParseServiceDate(input.NextServiceDate, h.location())
		if err != nil {
			return &validationError{message: "Geçersiz sonraki bakım tarihi.", fields: []string{"nextServiceDate"}}
		}
	}
	phone := strings.TrimSpace(input.Phone)
	if phone != "" && !utils.ValidatePhone(phone) {
		return &validationError{message: "Geçersiz telefon numarası.", fields: []string{"phone"}}
	}

	record.CustomerName = strings.TrimSpace(input.CustomerName)
	record.Phone = phone
	record.Plate = utils.NormalizePlate(input.Plate)
	record.VehicleModel = strings.TrimSpace(input.VehicleModel)
	record.ServiceDate = serviceDate
	record.WorkPerformed = strings.TrimSpace(input.WorkPerformed)
	record.CheckupNotes = strings.TrimSpace(input.CheckupNotes)
	record.Fee = float64(input.Fee)
	record.StaffName = strings.TrimSpace(input.StaffName)
	record.NextServiceDate = &next
	return nil
}

func respondWithValidation(c *gin.Context, err error) {
	var vErr *validationError
	if errors.As(err, &vErr) {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": vErr.message, "fields": vErr.fields})
		return
	}
	utils.RespondWithError(c, http.StatusBadRequest, err.Error())
}

// loadRecord fetches the :id record, writing 404 or 500 when it cannot.
func (h *Handler) loadRecord(c *gin.Context) (*models.ServiceRecord, bool) {
	record, err := h.Records.Get(c.Request.Context(), c.Param("id"))
	if errors.Is(err, store.ErrRecordNotFound) {
		utils.RespondWithError(c, http.StatusNotFound, "Kayıt bulunamadı")
		return nil, false
	}
	if err != nil {
		log.WithError(err).WithField("recordId", c.Param("id")).Error("failed to load record")
		utils.RespondWithError(c, http.StatusInternalServerError, err.Error())
		return nil, false
	}
	return record, true
}

func (h *Handler) refreshFeed(c *gin.Context) {
	if h.Feed == nil {
		return
	}
	// Snapshot errors reach subscribers; the write itself already succeeded.
	_ = h.Feed.Refresh(c.Request.Context())
}

func (h *Handler) ListRecords(c *gin.Context) {
	records, err := h.Records.List(c.Request.Context(), c.Query("q"))
	if err != nil {
		log.WithError(err).Error("failed to list records")
		utils.RespondWithError(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": records, "count": len(records)})
}

func (h *Handler) GetRecord(c *gin.Context) {
	record, ok := h.loadRecord(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"record": record})
}

func (h *Handler) CreateRecord(c *gin.Context) {
	var input RecordInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	record := models.ServiceRecord{CreatedByUserID: c.GetString("userId")}
	if err := h.apply(input, &record, false); err != nil {
		respondWithValidation(c, err)
		return
	}

	if err := h.Records.Add(c.Request.Context(), &record); err != nil {
		log.WithError(err).Error("failed to create record")
		utils.RespondWithError(c, http.StatusInternalServerError, "Kayıt eklenirken hata oluştu: "+err.Error())
		return
	}
	h.refreshFeed(c)

	c.JSON(http.StatusCreated, gin.H{"message": "Kayıt başarıyla eklendi", "record": record})
}

func (h *Handler) UpdateRecord(c *gin.Context) {
	var input RecordInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	record, ok := h.loadRecord(c)
	if !ok {
		return
	}
	if err := h.apply(input, record, true); err != nil {
		respondWithValidation(c, err)
		return
	}

	err := h.Records.Update(c.Request.Context(), record)
	if errors.Is(err, store.ErrRecordNotFound) {
		utils.RespondWithError(c, http.StatusNotFound, "Kayıt bulunamadı")
		return
	}
	if err != nil {
		log.WithError(err).WithField("recordId", record.ID).Error("failed to update record")
		utils.RespondWithError(c, http.StatusInternalServerError, "Kayıt güncellenirken hata oluştu: "+err.Error())
		return
	}
	h.refreshFeed(c)

	c.JSON(http.StatusOK, gin.H{"message": "Kayıt güncellendi", "record": record})
}

// RecordPDF streams the printable form. Touch devices get it inline so the OS
// viewer and share sheet open; desktops download it.
func (h *Handler) RecordPDF(c *gin.Context) {
	record, ok := h.loadRecord(c)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := h.PDF.Render(&buf, *record); err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "PDF oluşturulurken bir hata oluştu: "+err.Error())
		return
	}

	disposition := "attachment"
	if utils.IsMobileAgent(c.GetHeader("User-Agent")) {
		disposition = "inline"
	}
	c.Header("Content-Disposition", fmt.Sprintf(`%s; filename="%s"`, disposition, utils.ServiceFormFileName(record.Plate)))
	c.Data(http.StatusOK, "application/pdf", buf.Bytes())
}

// RecordWhatsApp returns the wa.me link that opens a prefilled reminder chat.
func (h *Handler) RecordWhatsApp(c *gin.Context) {
	record, ok := h.loadRecord(c)
	if !ok {
		return
	}
	link := utils.WhatsAppLink(record.Phone, h.Config.Reminders.MessageTemplate)
	if link == "" {
		utils.RespondWithError(c, http.StatusBadRequest, "Bu kayıt için telefon numarası bulunmuyor.")
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": link})
}
