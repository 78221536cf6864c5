package services

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"otoil-backend/config"
	"otoil-backend/models"
)

func pdfRecord() models.ServiceRecord {
	serviceDate := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	next := DeriveNextServiceDate(serviceDate)
	return models.ServiceRecord{
		ID:              "r1",
		CustomerName:    "Şükrü Öztürk",
		Phone:           "0532 123 45 67",
		Plate:           "34 ABC 123",
		VehicleModel:    "Renault Clio",
		ServiceDate:     serviceDate,
		WorkPerformed:   "Motor yağı, yağ filtresi ve hava filtresi değişimi",
		CheckupNotes:    "Ön balatalar %40",
		Fee:             1500,
		NextServiceDate: &next,
	}
}

func TestPDFRenderer_Render(t *testing.T) {
	cfg := config.Default().PDF
	cfg.LogoPath = ""
	r := NewPDFRenderer(cfg)
	r.compress = false

	var buf bytes.Buffer
	require.NoError(t, r.Render(&buf, pdfRecord()))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "%PDF-"))
	assert.Contains(t, out, "Arac Bakim Hizmet Formu")
	assert.Contains(t, out, "Sukru Ozturk")
	assert.Contains(t, out, "1.500,00 TL")
	assert.Contains(t, out, "10.07.2024")
	assert.Contains(t, out, "Sahin Lale", "default staff is printed when none is set")
}

func TestPDFRenderer_MissingLogo(t *testing.T) {
	cfg := config.Default().PDF
	cfg.LogoPath = "/nonexistent/otoil-logo.png"
	r := NewPDFRenderer(cfg)

	var buf bytes.Buffer
	require.NoError(t, r.Render(&buf, pdfRecord()))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
}

func TestPDFRenderer_LongContentPaginates(t *testing.T) {
	cfg := config.Default().PDF
	cfg.LogoPath = ""
	r := NewPDFRenderer(cfg)
	r.compress = false

	record := pdfRecord()
	record.WorkPerformed = strings.Repeat("Detayli kontrol yapildi. ", 400)

	var buf bytes.Buffer
	require.NoError(t, r.Render(&buf, record))
	assert.Contains(t, buf.String(), "Sayfa 2/")
}
