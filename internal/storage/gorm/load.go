package gormstorage

import (
	"context"
	"fmt"

	"github.com/OCAP2/luxreplay/internal/model"
	"github.com/OCAP2/luxreplay/internal/model/convert"
	"github.com/OCAP2/luxreplay/pkg/core"

	"gorm.io/gorm"
)

// loadTable reads every row of a replay and appends it to the rows of its turn.
func loadTable[T any](db *gorm.DB, replayID uint, byTurn map[int]*convert.FrameRows, turn func(T) int, add func(*convert.FrameRows, T)) error {
	var items []T
	if err := db.Where("replay_id = ?", replayID).Order("id").Find(&items).Error; err != nil {
		return err
	}
	for _, item := range items {
		if rows, ok := byTurn[turn(item)]; ok {
			add(rows, item)
		}
	}
	return nil
}

// LoadFrames reads a stored replay back into frames ordered by turn.
func (b *Backend) LoadFrames(ctx context.Context, replayID uint) (*core.ReplayMeta, []*core.Frame, error) {
	if b.deps.DB == nil {
		return nil, nil, fmt.Errorf("backend not initialized")
	}
	db := b.deps.DB.WithContext(ctx)

	var r model.Replay
	if err := db.First(&r, replayID).Error; err != nil {
		return nil, nil, fmt.Errorf("failed to load replay %d: %w", replayID, err)
	}

	var records []model.FrameRecord
	if err := db.Where("replay_id = ?", replayID).Order("turn").Find(&records).Error; err != nil {
		return nil, nil, fmt.Errorf("failed to load frame records: %w", err)
	}

	byTurn := make(map[int]*convert.FrameRows, len(records))
	for _, rec := range records {
		byTurn[rec.Turn] = &convert.FrameRows{Record: rec}
	}

	err := firstErr(
		loadTable(db, replayID, byTurn,
			func(u model.UnitState) int { return u.Turn },
			func(rows *convert.FrameRows, u model.UnitState) { rows.Units = append(rows.Units, u) }),
		loadTable(db, replayID, byTurn,
			func(c model.CityState) int { return c.Turn },
			func(rows *convert.FrameRows, c model.CityState) { rows.Cities = append(rows.Cities, c) }),
		loadTable(db, replayID, byTurn,
			func(c model.CityTileState) int { return c.Turn },
			func(rows *convert.FrameRows, c model.CityTileState) { rows.CityTiles = append(rows.CityTiles, c) }),
		loadTable(db, replayID, byTurn,
			func(r model.ResourceState) int { return r.Turn },
			func(rows *convert.FrameRows, r model.ResourceState) { rows.Resources = append(rows.Resources, r) }),
		loadTable(db, replayID, byTurn,
			func(r model.RoadState) int { return r.Turn },
			func(rows *convert.FrameRows, r model.RoadState) { rows.Roads = append(rows.Roads, r) }),
		loadTable(db, replayID, byTurn,
			func(t model.TeamState) int { return t.Turn },
			func(rows *convert.FrameRows, t model.TeamState) { rows.Teams = append(rows.Teams, t) }),
		loadTable(db, replayID, byTurn,
			func(a model.Annotation) int { return a.Turn },
			func(rows *convert.FrameRows, a model.Annotation) { rows.Annotations = append(rows.Annotations, a) }),
		loadTable(db, replayID, byTurn,
			func(e model.TurnError) int { return e.Turn },
			func(rows *convert.FrameRows, e model.TurnError) { rows.Errors = append(rows.Errors, e) }),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load frame rows: %w", err)
	}

	frames := make([]*core.Frame, 0, len(records))
	for _, rec := range records {
		f, err := convert.FrameRowsToCore(*byTurn[rec.Turn])
		if err != nil {
			return nil, nil, fmt.Errorf("replay %d: %w", replayID, err)
		}
		frames = append(frames, f)
	}
	meta := convert.ReplayToMeta(r)
	return &meta, frames, nil
}

func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
