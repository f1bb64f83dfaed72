package services

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/sidneypayan/linguami-sub005/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// StreamUserProgressSSE streams newly committed ledger entries for the
// authenticated user so the client can pop XP/Gold toasts in real time.
func (s *RewardService) StreamUserProgressSSE(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	// SSE headers
	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("X-Accel-Buffering", "no") // nginx

	db := s.DB

	// Use fasthttp stream writer (THIS replaces Flush)
	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		ticker := time.NewTicker(2 * time.Second)
		defer ticker.Stop()

		var lastMaxCreatedAt time.Time

		// Initialize cursor so only entries committed after connect are sent
		var latest models.XpTransaction
		if err := db.
			Where("external_user_id = ?", userID).
			Order("created_at DESC").
			First(&latest).Error; err == nil {
			lastMaxCreatedAt = latest.CreatedAt
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("SSE init error for user %s: %v", userID, err)
		}

		// Initial keepalive (comment event)
		w.WriteString(":\n\n")
		w.Flush()

		for {
			select {
			case <-ticker.C:
				var entries []models.XpTransaction

				err := db.
					Where("external_user_id = ?", userID).
					Where("created_at > ?", lastMaxCreatedAt).
					Order("created_at ASC").
					Find(&entries).Error

				if err != nil {
					log.Printf("SSE query error for user %s: %v", userID, err)
					continue
				}

				if len(entries) == 0 {
					continue
				}

				lastMaxCreatedAt = entries[len(entries)-1].CreatedAt

				for _, e := range entries {
					payload, _ := json.Marshal(e)

					fmt.Fprintf(w,
						"event: xp\ndata: %s\n\n",
						payload,
					)
				}

				// This is the REAL "flush"
				if err := w.Flush(); err != nil {
					// Client disconnected
					return
				}

			case <-c.Context().Done():
				// Client closed connection
				return
			}
		}
	})

	return nil
}
