package controllers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"otoil-backend/models"
	"otoil-backend/services"
	"otoil-backend/utils"
)

const recentRecordsLimit = 5

type DashboardOverview struct {
	TodayRevenue  float64        `json:"todayRevenue"`
	TodayCount    int            `json:"todayCount"`
	DailyRevenue  []DailyRevenue `json:"dailyRevenue"`
	TotalRecords  int            `json:"totalRecords"`
	Reminders     ReminderCounts `json:"reminders"`
	RecentRecords []RecentRecord `json:"recentRecords"`
}

type DailyRevenue struct {
	Day     string  `json:"day"`  // short weekday, e.g. "Pzt"
	Date    string  `json:"date"` // dd.mm.yyyy
	Revenue float64 `json:"revenue"`
}

type ReminderCounts struct {
	Overdue  int `json:"overdue"`
	DueToday int `json:"dueToday"`
	DueSoon  int `json:"dueSoon"`
}

type RecentRecord struct {
	ID           string `json:"id"`
	CustomerName string `json:"customerName"`
	Plate        string `json:"plate"`
	Work         string `json:"workPerformed"`
	VisitDate    string `json:"visitDate"` // e.g. "Bugün", "Dün", "3 gün önce"
}

// Dashboard aggregates in memory so it works the same on every record backend.
func (h *Handler) Dashboard(c *gin.Context) {
	records, err := h.Records.List(c.Request.Context(), "")
	if err != nil {
		log.WithError(err).Error("failed to list records for dashboard")
		utils.RespondWithError(c, http.StatusInternalServerError, "Kayıtlar yüklenemedi.")
		return
	}
	c.JSON(http.StatusOK, buildOverview(records, h.today()))
}

func buildOverview(records []models.ServiceRecord, today time.Time) DashboardOverview {
	overview := DashboardOverview{
		TotalRecords:  len(records),
		DailyRevenue:  make([]DailyRevenue, 0, 7),
		RecentRecords: []RecentRecord{},
	}

	start := utils.BeginningOfDay(today)
	revenue := make(map[int]float64)
	for _, r := range records {
		ago := utils.DaysBetween(r.ServiceDate, start)
		if ago >= 0 && ago < 7 {
			revenue[ago] += r.Fee
		}
		if ago == 0 {
			overview.TodayCount++
		}
	}
	overview.TodayRevenue = revenue[0]

	for i := 6; i >= 0; i-- {
		day := start.AddDate(0, 0, -i)
		overview.DailyRevenue = append(overview.DailyRevenue, DailyRevenue{
			Day:     utils.ShortWeekday(day),
			Date:    utils.FormatDate(day),
			Revenue: revenue[i],
		})
	}

	for _, r := range services.BuildReminders(records, today) {
		switch r.Urgency {
		case services.UrgencyOverdue:
			overview.Reminders.Overdue++
		case services.UrgencyDueToday:
			overview.Reminders.DueToday++
		case services.UrgencyDueSoon:
			overview.Reminders.DueSoon++
		}
	}

	// records come back newest first
	for i, r := range records {
		if i == recentRecordsLimit {
			break
		}
		overview.RecentRecords = append(overview.RecentRecords, RecentRecord{
			ID:           r.ID,
			CustomerName: r.CustomerName,
			Plate:        r.Plate,
			Work:         r.WorkPerformed,
			VisitDate:    visitLabel(utils.DaysBetween(r.ServiceDate, start)),
		})
	}
	return overview
}

func visitLabel(daysAgo int) string {
	switch {
	case daysAgo == 0:
		return "Bugün"
	case daysAgo == 1:
		return "Dün"
	case daysAgo > 1:
		return fmt.Sprintf("%d gün önce", daysAgo)
	default:
		return fmt.Sprintf("%d gün sonra", -daysAgo)
	}
}

// DashboardStrategy asks the advisor for today's business strategy, built from
// the same figures the dashboard shows. One call per request, no retry.
func (h *Handler) DashboardStrategy(c *gin.Context) {
	if h.Strategist == nil {
		utils.RespondWithError(c, http.StatusServiceUnavailable, "GEMINI_API_KEY tanımlı değil.")
		return
	}
	records, err := h.Records.List(c.Request.Context(), "")
	if err != nil {
		log.WithError(err).Error("failed to list records for strategy")
		utils.RespondWithError(c, http.StatusInternalServerError, "Kayıtlar yüklenemedi.")
		return
	}

	strategy, err := h.Strategist.Advise(c.Request.Context(), strategyContext(buildOverview(records, h.today())))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadGateway, err.Error())
		return
	}
	c.JSON(http.StatusOK, strategy)
}

// strategyContext renders the overview as the plain-text summary sent to the model.
func strategyContext(o DashboardOverview) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Bugünün cirosu: %s TL\n", utils.FormatFee(o.TodayRevenue))
	fmt.Fprintf(&b, "Bugünkü hizmet sayısı: %d\n", o.TodayCount)
	fmt.Fprintf(&b, "Toplam kayıt: %d\n", o.TotalRecords)
	fmt.Fprintf(&b, "Bakım hatırlatmaları: %d gecikmiş, %d bugün, %d yaklaşan\n",
		o.Reminders.Overdue, o.Reminders.DueToday, o.Reminders.DueSoon)

	b.WriteString("\nSon 7 günün cirosu:\n")
	for _, d := range o.DailyRevenue {
		fmt.Fprintf(&b, "- %s %s: %s TL\n", d.Day, d.Date, utils.FormatFee(d.Revenue))
	}

	if len(o.RecentRecords) > 0 {
		b.WriteString("\nSon işlemler:\n")
		for _, r := range o.RecentRecords {
			fmt.Fprintf(&b, "- %s (%s): %s, %s\n", r.Plate, r.CustomerName, r.Work, r.VisitDate)
		}
	}
	return b.String()
}
