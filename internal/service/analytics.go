package service

import (
	"context"
	"time"

	"github.com/aman-churiwal/hackathon-portal/internal/models"
	"github.com/aman-churiwal/hackathon-portal/internal/repository"
)

// RequestLogStore is implemented by *repository.RequestLogRepository.
type RequestLogStore interface {
	FindByTimeRange(ctx context.Context, from, to time.Time, statusCode *int, limit, offset int) ([]models.RequestLog, error)
	CountByTimeRange(ctx context.Context, from, to time.Time) (int64, error)
	GetAverageResponseTime(ctx context.Context, from, to time.Time) (float64, error)
	GetPercentile(ctx context.Context, from, to time.Time, percentile float64) (int, error)
	CountByStatusCodeRange(ctx context.Context, minStatusCode, maxStatusCode int, from, to time.Time) (int64, error)
	GetTopRoutes(ctx context.Context, from, to time.Time, limit int) ([]repository.RouteCount, error)
	GetHourlyStats(ctx context.Context, from, to time.Time) ([]repository.HourlyStat, error)
	DeleteOldLogs(ctx context.Context, before time.Time) (int64, error)
}

type StatusCounter interface {
	CountByStatus(ctx context.Context) (map[models.RegistrationStatus]int64, error)
}

type AnalyticsService struct {
	logs          RequestLogStore
	registrations StatusCounter
}

func NewAnalyticsService(logs RequestLogStore, registrations StatusCounter) *AnalyticsService {
	return &AnalyticsService{
		logs:          logs,
		registrations: registrations,
	}
}

// Holds analytics summary data
type AnalyticsSummary struct {
	TotalRequests   int64                   `json:"total_requests"`
	AvgResponseTime float64                 `json:"avg_response_time_ms"`
	P50ResponseTime int                     `json:"p50_response_time_ms"`
	P95ResponseTime int                     `json:"p95_response_time_ms"`
	P99ResponseTime int                     `json:"p99_response_time_ms"`
	ErrorRate       float64                 `json:"error_rate"`
	SuccessRate     float64                 `json:"success_rate"`
	ClientErrorRate float64                 `json:"client_error_rate"`
	ServerErrorRate float64                 `json:"server_error_rate"`
	RateLimited     int64                   `json:"rate_limited"`
	TopRoutes       []repository.RouteCount `json:"top_routes"`
	HourlyBreakdown []repository.HourlyStat `json:"hourly"`
}

type RegistrationStats struct {
	Total    int64 `json:"total"`
	Pending  int64 `json:"pending"`
	Approved int64 `json:"approved"`
	Rejected int64 `json:"rejected"`
}

// Retrieves analytics summary for a time range
func (s *AnalyticsService) GetSummary(ctx context.Context, from, to time.Time) (*AnalyticsSummary, error) {
	summary := &AnalyticsSummary{}

	totalRequests, err := s.logs.CountByTimeRange(ctx, from, to)
	if err != nil {
		return nil, err
	}
	summary.TotalRequests = totalRequests

	if totalRequests == 0 {
		return summary, nil
	}

	avgResponseTime, err := s.logs.GetAverageResponseTime(ctx, from, to)
	if err != nil {
		return nil, err
	}
	summary.AvgResponseTime = avgResponseTime

	// Percentiles are best effort
	summary.P50ResponseTime, _ = s.logs.GetPercentile(ctx, from, to, 0.50)
	summary.P95ResponseTime, _ = s.logs.GetPercentile(ctx, from, to, 0.95)
	summary.P99ResponseTime, _ = s.logs.GetPercentile(ctx, from, to, 0.99)

	clientErrors, err := s.logs.CountByStatusCodeRange(ctx, 400, 499, from, to)
	if err != nil {
		return nil, err
	}

	serverErrors, err := s.logs.CountByStatusCodeRange(ctx, 500, 599, from, to)
	if err != nil {
		return nil, err
	}

	summary.RateLimited, err = s.logs.CountByStatusCodeRange(ctx, 429, 429, from, to)
	if err != nil {
		return nil, err
	}

	totalErrors := clientErrors + serverErrors
	summary.ErrorRate = (float64(totalErrors) / float64(totalRequests)) * 100
	summary.SuccessRate = 100 - summary.ErrorRate
	summary.ClientErrorRate = (float64(clientErrors) / float64(totalRequests)) * 100
	summary.ServerErrorRate = (float64(serverErrors) / float64(totalRequests)) * 100

	summary.TopRoutes, err = s.logs.GetTopRoutes(ctx, from, to, 10)
	if err != nil {
		return nil, err
	}

	summary.HourlyBreakdown, err = s.logs.GetHourlyStats(ctx, from, to)
	if err != nil {
		return nil, err
	}

	return summary, nil
}

// Retrieves request logs with pagination and an optional status filter
func (s *AnalyticsService) GetLogs(ctx context.Context, from, to time.Time, statusCode *int, limit, offset int) ([]models.RequestLog, error) {
	return s.logs.FindByTimeRange(ctx, from, to, statusCode, limit, offset)
}

func (s *AnalyticsService) GetRegistrationStats(ctx context.Context) (*RegistrationStats, error) {
	counts, err := s.registrations.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}

	stats := &RegistrationStats{
		Pending:  counts[models.StatusPending],
		Approved: counts[models.StatusApproved],
		Rejected: counts[models.StatusRejected],
	}
	for _, n := range counts {
		stats.Total += n
	}

	return stats, nil
}

// Deletes logs older than specified retention period
func (s *AnalyticsService) CleanupOldLogs(ctx context.Context, retentionDays int) (int64, error) {
	cutOffDate := time.Now().AddDate(0, 0, -retentionDays)
	return s.logs.DeleteOldLogs(ctx, cutOffDate)
}
