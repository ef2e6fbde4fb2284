package services

import (
	"context"
	"time"

	"gorm.io/gorm"

	"lifequest-api/models"
)

const (
	DefaultHistoryLimit = 20
	MaxHistoryLimit     = 100
)

type HistoryFilter struct {
	EntityType models.EntityType
	EntityID   string
	SourceType models.SourceType
	SourceID   string
	Since      *time.Time
	Until      *time.Time
	Limit      int
	Offset     int
}

// HistoryItem is a ledger row annotated for display. SourceTitle is empty
// when the source record no longer exists or the grant is ad-hoc.
type HistoryItem struct {
	models.XpGrant
	EntityName        string `json:"entity_name,omitempty"`
	SourceTitle       string `json:"source_title,omitempty"`
	SourceDescription string `json:"source_description,omitempty"`
}

type HistoryPage struct {
	Items  []HistoryItem `json:"items"`
	Total  int64         `json:"total"`
	Limit  int           `json:"limit"`
	Offset int           `json:"offset"`
}

type HistoryService struct {
	DB       *gorm.DB
	Ledger   *XpLedger
	Adapters *AdapterRegistry
}

func NewHistoryService(db *gorm.DB, ledger *XpLedger, adapters *AdapterRegistry) *HistoryService {
	return &HistoryService{DB: db, Ledger: ledger, Adapters: adapters}
}

func (s *HistoryService) History(ctx context.Context, userID string, f HistoryFilter) (*HistoryPage, error) {
	if userID == "" {
		return nil, invalidInput("user id is required")
	}
	if f.EntityType != "" && !f.EntityType.Valid() {
		return nil, ErrUnsupportedEntityType
	}
	if f.SourceType != "" && !f.SourceType.Valid() {
		return nil, ErrInvalidSource
	}
	if f.EntityID != "" {
		if f.EntityType == "" {
			return nil, invalidInput("entity_type is required with entity_id")
		}
		adapter, err := s.Adapters.For(f.EntityType)
		if err != nil {
			return nil, err
		}
		if _, err := adapter.Load(ctx, s.DB, userID, f.EntityID); err != nil {
			return nil, err
		}
	}

	limit := f.Limit
	switch {
	case limit <= 0:
		limit = DefaultHistoryLimit
	case limit > MaxHistoryLimit:
		limit = MaxHistoryLimit
	}
	offset := max(f.Offset, 0)

	grants, total, err := s.Ledger.Page(ctx, nil, userID, LedgerFilter{
		EntityType: f.EntityType,
		EntityID:   f.EntityID,
		SourceType: f.SourceType,
		SourceID:   f.SourceID,
		Since:      f.Since,
		Until:      f.Until,
		Limit:      limit,
		Offset:     offset,
	})
	if err != nil {
		return nil, err
	}

	items, err := s.annotate(ctx, userID, grants)
	if err != nil {
		return nil, err
	}
	return &HistoryPage{Items: items, Total: total, Limit: limit, Offset: offset}, nil
}

type sourceLabel struct {
	title       string
	description string
}

// annotate resolves entity names and source titles with one query per
// entity or source type on the page.
func (s *HistoryService) annotate(ctx context.Context, userID string, grants []models.XpGrant) ([]HistoryItem, error) {
	entityIDs := map[models.EntityType][]string{}
	sourceIDs := map[models.SourceType][]string{}
	for _, g := range grants {
		entityIDs[g.EntityType] = append(entityIDs[g.EntityType], g.EntityID)
		if g.SourceID != nil {
			sourceIDs[g.SourceType] = append(sourceIDs[g.SourceType], *g.SourceID)
		}
	}

	names := map[EntityRef]string{}
	for t, ids := range entityIDs {
		if err := s.entityNames(ctx, userID, t, ids, names); err != nil {
			return nil, err
		}
	}
	labels := map[string]sourceLabel{}
	for t, ids := range sourceIDs {
		if err := s.sourceLabels(ctx, userID, t, ids, labels); err != nil {
			return nil, err
		}
	}

	items := make([]HistoryItem, 0, len(grants))
	for _, g := range grants {
		item := HistoryItem{XpGrant: g, EntityName: names[EntityRef{Type: g.EntityType, ID: g.EntityID}]}
		if g.SourceID != nil {
			l := labels[string(g.SourceType)+":"+*g.SourceID]
			item.SourceTitle, item.SourceDescription = l.title, l.description
		}
		items = append(items, item)
	}
	return items, nil
}

func (s *HistoryService) entityNames(ctx context.Context, userID string, t models.EntityType, ids []string, out map[EntityRef]string) error {
	type row struct {
		ID   string
		Name string
	}
	var model any
	switch t {
	case models.EntityCharacterStat:
		model = &models.CharacterStat{}
	case models.EntityFamilyMember:
		model = &models.FamilyMember{}
	default:
		return nil
	}
	var rows []row
	err := s.DB.WithContext(ctx).Model(model).
		Select("id, name").
		Where("user_id = ? AND id IN ?", userID, ids).
		Scan(&rows).Error
	if err != nil {
		return err
	}
	for _, r := range rows {
		out[EntityRef{Type: t, ID: r.ID}] = r.Name
	}
	return nil
}

func (s *HistoryService) sourceLabels(ctx context.Context, userID string, t models.SourceType, ids []string, out map[string]sourceLabel) error {
	type row struct {
		ID          string
		Title       string
		Description string
	}
	var (
		model  any
		fields string
	)
	switch t {
	case models.SourceTask:
		model, fields = &models.Task{}, "id, title, description"
	case models.SourceQuest:
		model, fields = &models.Quest{}, "id, title, description"
	case models.SourceExperiment:
		model, fields = &models.Experiment{}, "id, title, hypothesis AS description"
	case models.SourceJournal:
		model, fields = &models.Journal{}, "id, title, '' AS description"
	case models.SourceInteraction:
		model, fields = &models.FamilyInteraction{}, "id, kind AS title, note AS description"
	default:
		return nil
	}
	var rows []row
	err := s.DB.WithContext(ctx).Model(model).
		Select(fields).
		Where("user_id = ? AND id IN ?", userID, ids).
		Scan(&rows).Error
	if err != nil {
		return err
	}
	for _, r := range rows {
		out[string(t)+":"+r.ID] = sourceLabel{title: r.Title, description: r.Description}
	}
	return nil
}
