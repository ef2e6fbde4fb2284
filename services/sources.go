package services

import (
	"fmt"
	"strings"

	"lifequest-api/models"
)

// awardRequests turns a source record's planned awards into grant requests
// sharing the same source.
func awardRequests(userID string, sourceType models.SourceType, sourceID string, awards []models.Award) ([]GrantRequest, error) {
	reqs := make([]GrantRequest, 0, len(awards))
	for i, a := range awards {
		if a.EntityType == "" || a.EntityID == "" {
			return nil, invalidInput("award %d needs entity_type and entity_id", i)
		}
		reqs = append(reqs, GrantRequest{
			UserID:     userID,
			EntityType: a.EntityType,
			EntityID:   a.EntityID,
			Amount:     a.Amount,
			SourceType: sourceType,
			SourceID:   &sourceID,
			Reason:     optionalString(a.Reason),
		})
	}
	return reqs, nil
}

func validateAwards(awards []models.Award) error {
	for i, a := range awards {
		if !a.EntityType.Valid() {
			return fmt.Errorf("%w: award %d: %q", ErrUnsupportedEntityType, i, a.EntityType)
		}
		if strings.TrimSpace(a.EntityID) == "" {
			return invalidInput("award %d needs an entity_id", i)
		}
		if a.Amount <= 0 {
			return fmt.Errorf("%w: award %d: %d", ErrInvalidAmount, i, a.Amount)
		}
	}
	return nil
}

func sumAwards(results []GrantResult) int64 {
	var total int64
	for _, r := range results {
		total += r.Grant.XPAmount
	}
	return total
}
