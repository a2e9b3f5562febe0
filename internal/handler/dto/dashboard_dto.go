package dto

import "github.com/recapstack/decide-api/internal/domain/license"

type DashboardSummaryResponse struct {
	TotalLicenses int64                         `json:"totalLicenses"`
	TypeCounts    map[license.LicenseType]int64 `json:"typeCounts"`
	ActiveTrials  int64                         `json:"activeTrials"`
	ExpiredTrials int64                         `json:"expiredTrials"`
}
