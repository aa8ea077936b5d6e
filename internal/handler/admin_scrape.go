package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// TriggerScrape starts a manual scrape for a vendor source. A concurrent
// run for the same source returns skipped with the running job's id.
func (h *Handler) TriggerScrape(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	res, err := h.Scraper.Trigger(c.Request().Context(), id)
	if err != nil {
		return err
	}
	status := http.StatusAccepted
	if res.Skipped {
		status = http.StatusConflict
	}
	return c.JSON(status, res)
}

// StopScrapeJob aborts a running job.
func (h *Handler) StopScrapeJob(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if err := h.Scraper.Stop(c.Request().Context(), id); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"stopped": true})
}

// GetScrapeJob returns a job's status and stats.
func (h *Handler) GetScrapeJob(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	job, err := h.Store.GetScrapeJob(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, job)
}
