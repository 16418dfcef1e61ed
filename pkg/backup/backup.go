package backup

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"GuardianSOS/pkg/logger"
	"GuardianSOS/pkg/scheduler"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Config struct {
	DBDriver string
	DSN      string
	Path     string
	Schedule string // cron 表达式
	Keep     int    // 保留份数，<=0 不清理
}

// Backuper 负责数据库快照
type Backuper struct {
	cfg Config
	db  *gorm.DB
	now func() time.Time
}

func New(cfg Config, db *gorm.DB) *Backuper {
	return &Backuper{cfg: cfg, db: db, now: time.Now}
}

// Schedule 注册到 cron
func (b *Backuper) Schedule(cr *scheduler.Cron) error {
	_, err := cr.Add(b.cfg.Schedule, scheduler.FuncJob(func(ctx context.Context) {
		dst, err := b.Execute(ctx)
		if err != nil {
			logger.Warn("backup failed", zap.Error(err))
			return
		}
		logger.Info("backup completed", zap.String("file", dst))
	}))
	return err
}

// Execute 根据驱动执行备份，返回备份文件路径
func (b *Backuper) Execute(ctx context.Context) (string, error) {
	switch b.cfg.DBDriver {
	case "", "sqlite":
	default:
		return "", fmt.Errorf("unsupported DB_DRIVER for backup: %s", b.cfg.DBDriver)
	}
	if err := os.MkdirAll(b.cfg.Path, os.ModePerm); err != nil {
		return "", fmt.Errorf("failed to create backup directory: %w", err)
	}
	dst := filepath.Join(b.cfg.Path, fmt.Sprintf("guardian_backup_%s.db", b.now().Format("20060102_150405")))

	var err error
	if b.db != nil {
		// VACUUM INTO 生成一致性快照
		err = b.db.WithContext(ctx).Exec("VACUUM INTO ?", dst).Error
	} else {
		err = CopyFile(b.cfg.DSN, dst)
	}
	if err != nil {
		return "", err
	}
	if b.cfg.Keep > 0 {
		if err := b.prune(); err != nil {
			logger.Warn("backup prune failed", zap.Error(err))
		}
	}
	return dst, nil
}

func (b *Backuper) prune() error {
	entries, err := os.ReadDir(b.cfg.Path)
	if err != nil {
		return err
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasPrefix(e.Name(), "guardian_backup_") {
			names = append(names, e.Name())
		}
	}
	if len(names) <= b.cfg.Keep {
		return nil
	}
	// 文件名含时间戳，字典序即时间序
	sort.Strings(names)
	for _, n := range names[:len(names)-b.cfg.Keep] {
		if err := os.Remove(filepath.Join(b.cfg.Path, n)); err != nil {
			return err
		}
	}
	return nil
}

// CopyFile 执行 SQLite 文件级拷贝
func CopyFile(src, dst string) error {
	sourceFile, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("error opening source file: %w", err)
	}
	defer sourceFile.Close()

	destFile, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("error creating destination file: %w", err)
	}
	if _, err := io.Copy(destFile, sourceFile); err != nil {
		destFile.Close()
		return fmt.Errorf("error copying data: %w", err)
	}
	return destFile.Close()
}
