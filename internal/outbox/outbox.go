package outbox

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	gormsqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/BearBump/CheckPoint/internal/models"
)

// row — строка таблицы pending_check_ins. Записи не удаляются при синке,
// только помечаются synced (ретеншн чистит их отдельно).
type row struct {
	ID         string    `gorm:"column:id;type:text;primaryKey"`
	QRCode     string    `gorm:"column:qr_code;type:text;not null"`
	CapturedAt time.Time `gorm:"column:captured_at;not null"`
	Synced     bool      `gorm:"column:synced;not null;default:false;index"`
	CreatedAt  time.Time `gorm:"column:created_at;not null"`
}

func (row) TableName() string {
	return "pending_check_ins"
}

type Outbox struct {
	db *gorm.DB
}

// Open открывает (или создаёт) локальный sqlite-файл очереди.
// Должен работать полностью офлайн.
func Open(dsn string) (*Outbox, error) {
	if err := ensureDir(dsn); err != nil {
		return nil, errors.Wrap(err, "ensure outbox directory")
	}

	db, err := gorm.Open(gormsqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, errors.Wrap(err, "open outbox db")
	}
	if err := db.AutoMigrate(&row{}); err != nil {
		return nil, errors.Wrap(err, "migrate outbox schema")
	}
	return &Outbox{db: db}, nil
}

func (o *Outbox) Close() error {
	sqlDB, err := o.db.DB()
	if err != nil {
		return errors.Wrap(err, "outbox underlying db")
	}
	return sqlDB.Close()
}

// Enqueue сохраняет отсканированный код с текущим временем захвата.
// Возвращает локально сгенерированный id записи.
func (o *Outbox) Enqueue(ctx context.Context, qrCode string) (string, error) {
	now := time.Now().UTC()
	r := row{
		ID:         uuid.NewString(),
		QRCode:     qrCode,
		CapturedAt: now,
		Synced:     false,
		CreatedAt:  now,
	}
	if err := o.db.WithContext(ctx).Create(&r).Error; err != nil {
		return "", errors.Wrap(err, "insert pending check-in")
	}
	return r.ID, nil
}

// ListPending возвращает несинхронизированные записи в порядке вставки.
func (o *Outbox) ListPending(ctx context.Context) ([]models.PendingCheckIn, error) {
	var rows []row
	if err := o.db.WithContext(ctx).
		Where("synced = ?", false).
		Order("created_at asc").
		Find(&rows).Error; err != nil {
		return nil, errors.Wrap(err, "query pending check-ins")
	}

	out := make([]models.PendingCheckIn, 0, len(rows))
	for _, r := range rows {
		out = append(out, models.PendingCheckIn{
			ID:         r.ID,
			QRCode:     r.QRCode,
			CapturedAt: r.CapturedAt.UTC(),
			Synced:     r.Synced,
		})
	}
	return out, nil
}

// MarkSynced идемпотентно помечает запись как синхронизированную.
// Отсутствующий id — не ошибка.
func (o *Outbox) MarkSynced(ctx context.Context, id string) error {
	if err := o.db.WithContext(ctx).
		Model(&row{}).
		Where("id = ?", id).
		Update("synced", true).Error; err != nil {
		return errors.Wrap(err, "mark synced")
	}
	return nil
}

// CountPending — сколько записей ещё ждёт синка (для /stats и /pending).
func (o *Outbox) CountPending(ctx context.Context) (int64, error) {
	var n int64
	if err := o.db.WithContext(ctx).
		Model(&row{}).
		Where("synced = ?", false).
		Count(&n).Error; err != nil {
		return 0, errors.Wrap(err, "count pending check-ins")
	}
	return n, nil
}

// PurgeSynced удаляет только synced-записи старше cutoff. Pending-записи
// не трогает никогда. Возвращает число удалённых строк.
func (o *Outbox) PurgeSynced(ctx context.Context, olderThan time.Time) (int64, error) {
	res := o.db.WithContext(ctx).
		Where("synced = ? AND captured_at < ?", true, olderThan.UTC()).
		Delete(&row{})
	if res.Error != nil {
		return 0, errors.Wrap(res.Error, "purge synced check-ins")
	}
	return res.RowsAffected, nil
}

func ensureDir(dsn string) error {
	candidate := strings.TrimSpace(dsn)
	if candidate == "" || candidate == ":memory:" {
		return nil
	}
	if strings.HasPrefix(strings.ToLower(candidate), "file:") {
		candidate = strings.TrimPrefix(candidate, "file:")
	}
	if idx := strings.Index(candidate, "?"); idx >= 0 {
		candidate = candidate[:idx]
	}
	if strings.Contains(candidate, "memory") {
		return nil
	}
	dir := filepath.Dir(candidate)
	if dir == "" || dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
