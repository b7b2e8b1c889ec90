package service

import (
	"errors"
	"math"
	"strconv"
	"time"

	"referrals/internal/domain"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Clock supplies the current time. Tests pin it.
type Clock interface {
	Now() time.Time
}

type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

var SystemClock Clock = ClockFunc(time.Now)

// EventPublisher receives ledger events once they are committed.
type EventPublisher interface {
	Publish(eventType string, payload any)
}

type nopPublisher struct{}

func (nopPublisher) Publish(string, any) {}

// Page is one slice of a paginated listing. Page numbers start at 1.
type Page[T any] struct {
	Items      []T   `json:"items"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	First      bool  `json:"first"`
	Last       bool  `json:"last"`
	Empty      bool  `json:"empty"`
}

func newPage[T any](items []T, page, size int, total int64) *Page[T] {
	if items == nil {
		items = []T{}
	}
	pages := int((total + int64(size) - 1) / int64(size))
	return &Page[T]{
		Items:      items,
		Page:       page,
		PageSize:   size,
		Total:      total,
		TotalPages: pages,
		First:      page == 1,
		Last:       page >= pages,
		Empty:      len(items) == 0,
	}
}

func validatePage(page, size int) error {
	if page < 1 {
		return domain.InvalidArgument("page must be >= 1")
	}
	if size < 1 {
		return domain.InvalidArgument("page size must be >= 1")
	}
	// The row offset (page-1)*size must fit in an int.
	if page-1 > math.MaxInt/size {
		return domain.InvalidArgument("page is out of range")
	}
	return nil
}

func validatePeriod(quarter, year int) error {
	if !domain.ValidQuarter(quarter) {
		return domain.InvalidArgument("quarter must be between 1 and 4")
	}
	if year < 1 {
		return domain.InvalidArgument("year must be positive")
	}
	return nil
}

// referralKey is the lock key shared by everything that mutates one referral.
func referralKey(referredUserID uint) string {
	return "referral:" + strconv.FormatUint(uint64(referredUserID), 10)
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// storageErr logs the cause and hands the caller a generic failure.
func storageErr(log *zap.Logger, op string, err error) error {
	var derr *domain.Error
	if errors.As(err, &derr) {
		return err
	}
	log.Error("storage failure", zap.String("op", op), zap.Error(err))
	return domain.Operational(op)
}

func today(c Clock) time.Time {
	now := c.Now()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}
