package application

import (
	"time"

	"github.com/atvirokodosprendimai/notices/internal/domain"
	"github.com/atvirokodosprendimai/notices/internal/platform/logger"
)

const (
	defaultListLimit = 50
	maxListLimit     = 1000
)

type Options struct {
	// Location is the system timezone create-time conversions target.
	Location              *time.Location
	AllowList             domain.AllowList
	EventHistoryDays      int
	ICalPastDaysDefault   int
	ExemptViewPermissions []string
	LoginRequired         bool
	BaseURL               string
}

type Service struct {
	repo domain.Repository
	opts Options
	log  *logger.Logger
	now  func() time.Time
}

func NewService(repo domain.Repository, opts Options, log *logger.Logger) *Service {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.EventHistoryDays <= 0 {
		opts.EventHistoryDays = 30
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Service{repo: repo, opts: opts, log: log, now: time.Now}
}

func (s *Service) Options() Options {
	return s.opts
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	if limit > maxListLimit {
		return maxListLimit
	}
	return limit
}
