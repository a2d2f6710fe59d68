package runlog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"pictor/internal/logger"
	"pictor/internal/pipeline"
	"pictor/internal/types"
)

// 中文说明：
// 运行日志落库（Gorm + SQLite/WAL）。同时充当流水线观察者：
// 调用事件即时入库，运行终态在 RunFinished 时整体写入。
// 观察者路径的写入失败只记日志，绝不反压流水线。

// Store 运行日志存储。
type Store struct {
	db *gorm.DB
}

// ErrRunNotFound 指定运行不存在。
var ErrRunNotFound = errors.New("运行记录不存在")

func NewStore(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("runlog store: 数据库路径不能为空")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                                   gormlogger.Default.LogMode(gormlogger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&RunModel{}, &CandidateModel{}, &CallEventModel{}); err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// SQLite + WAL：少量并行足够支撑 HTTP 侧并发读，同时压低锁竞争。
	sqlDB.SetMaxOpenConns(2)
	sqlDB.SetMaxIdleConns(2)
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

var _ pipeline.Observer = (*Store)(nil)

// RunStarted 运行开始暂不落库，终态一次写全。
func (s *Store) RunStarted(runID string, req types.GenerateRequest) {
	logger.Debugf("[runlog] 运行 %s 已登记: prompt=%.40q", runID, req.Prompt)
}

// CallObserved 调用事件即时入库。
func (s *Store) CallObserved(evt pipeline.CallEvent) {
	if s == nil || s.db == nil {
		return
	}
	model := CallEventModel{
		RunID:       evt.RunID,
		Stage:       evt.Stage,
		Target:      evt.Target,
		CandidateID: evt.CandidateID,
		DurationMS:  evt.Duration.Milliseconds(),
		Error:       evt.Err,
		At:          evt.At,
	}
	if err := s.db.Create(&model).Error; err != nil {
		logger.Warnf("[runlog] 调用事件写入失败: %v", err)
	}
}

// RunFinished 写入运行终态与全部候选。
func (s *Store) RunFinished(result *types.RunResult, runErr error) {
	if s == nil || s.db == nil {
		return
	}
	if result == nil {
		// 失败运行没有 RunResult，只能记一条失败占位。
		if runErr != nil {
			logger.Debugf("[runlog] 失败运行未落库: %v", runErr)
		}
		return
	}
	if err := s.SaveRun(context.Background(), result, runErr); err != nil {
		logger.Warnf("[runlog] 运行 %s 落库失败: %v", result.RunID, err)
	}
}

// SaveRun 持久化一次运行（事务内）。
func (s *Store) SaveRun(ctx context.Context, result *types.RunResult, runErr error) error {
	run := RunModel{
		RunID:         result.RunID,
		Mode:          runMode(result.Request),
		Prompt:        result.Request.Prompt,
		RequestJSON:   mustJSON(result.Request),
		Status:        "succeeded",
		BestProvider:  result.BestProvider,
		BestImage:     result.BestImage,
		BestComposite: result.BestComposite,
		Summary:       result.Summary,
		ProvidersJSON: mustJSON(result.ProvidersUsed),
		StartedAt:     result.StartedAt,
		FinishedAt:    result.FinishedAt,
	}
	if runErr != nil {
		run.Status = "failed"
		run.Error = runErr.Error()
	}
	if result.Review != nil {
		run.ReviewJSON = mustJSON(result.Review)
	}

	models := make([]CandidateModel, 0, len(result.Candidates))
	for _, c := range result.Candidates {
		m := CandidateModel{
			ID:            c.ID,
			RunID:         result.RunID,
			Provider:      c.Provider,
			Image:         c.Image,
			SequenceIndex: c.SequenceIndex,
			GroupSize:     c.GroupSize,
			Submitted:     c.Submitted,
		}
		if c.Scores != nil {
			m.Composite = c.Scores.Composite
			m.ScoreSource = c.Scores.Source
			m.DimensionsJSON = mustJSON(c.Scores.Dimensions)
			m.CommentsJSON = mustJSON(c.Scores.Comments)
		}
		if c.Consistency != nil {
			m.ConsistencyScore = c.Consistency.Score
			m.ConsistencyStatus = c.Consistency.Status
		}
		models = append(models, m)
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&run).Error; err != nil {
			return err
		}
		if len(models) == 0 {
			return nil
		}
		return tx.Create(&models).Error
	})
}

// RunRecord 查询出参：运行 + 候选 + 调用事件。
type RunRecord struct {
	Run        RunModel         `json:"run"`
	Candidates []CandidateModel `json:"candidates"`
	Events     []CallEventModel `json:"events"`
}

// ListRuns 按完成时间倒序分页。
func (s *Store) ListRuns(ctx context.Context, limit, offset int) ([]RunModel, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var runs []RunModel
	err := s.db.WithContext(ctx).
		Order("finished_at DESC").
		Limit(limit).Offset(offset).
		Find(&runs).Error
	return runs, err
}

// GetRun 取单次运行的完整记录。
func (s *Store) GetRun(ctx context.Context, runID string) (*RunRecord, error) {
	var run RunModel
	err := s.db.WithContext(ctx).Where("run_id = ?", runID).First(&run).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, err
	}
	record := &RunRecord{Run: run}
	if err := s.db.WithContext(ctx).Where("run_id = ?", runID).Order("submitted ASC").Find(&record.Candidates).Error; err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Where("run_id = ?", runID).Order("at ASC").Find(&record.Events).Error; err != nil {
		return nil, err
	}
	return record, nil
}

// Prune 删除保留期之外的运行及其关联记录，返回删掉的运行数。
func (s *Store) Prune(ctx context.Context, retentionDays int) (int64, error) {
	if retentionDays <= 0 {
		return 0, nil
	}
	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	var expired []string
	if err := s.db.WithContext(ctx).Model(&RunModel{}).
		Where("finished_at < ?", cutoff).
		Pluck("run_id", &expired).Error; err != nil {
		return 0, err
	}
	if len(expired) == 0 {
		return 0, nil
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("run_id IN ?", expired).Delete(&CallEventModel{}).Error; err != nil {
			return err
		}
		if err := tx.Where("run_id IN ?", expired).Delete(&CandidateModel{}).Error; err != nil {
			return err
		}
		return tx.Where("run_id IN ?", expired).Delete(&RunModel{}).Error
	})
	if err != nil {
		return 0, err
	}
	return int64(len(expired)), nil
}

func runMode(req types.GenerateRequest) string {
	if len(req.ReferenceImages) > 0 {
		return "subject"
	}
	return "open"
}

func mustJSON(v any) datatypes.JSON {
	data, err := json.Marshal(v)
	if err != nil {
		return datatypes.JSON("null")
	}
	return datatypes.JSON(data)
}
