package main

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/nemonet1337/sedoriKeeper/internal/config"
)

// migration マイグレーションファイル
type migration struct {
	Filename string
	Content  []byte
	Checksum string
}

func main() {
	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	logger.Info("sedoriKeeper マイグレーション実行ツール")

	// 設定読み込み
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("設定読み込みに失敗しました", zap.Error(err))
	}

	logger.Info("データベースに接続中",
		zap.String("host", cfg.Database.Host),
		zap.Int("port", cfg.Database.Port),
		zap.String("dbname", cfg.Database.DBName),
	)

	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		logger.Fatal("データベース接続に失敗しました", zap.Error(err))
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	// 接続テスト
	if err := db.PingContext(ctx); err != nil {
		logger.Fatal("データベースpingに失敗しました", zap.Error(err))
	}

	// マイグレーションディレクトリの確認
	migrationDir := "migrations"
	if len(os.Args) > 1 {
		migrationDir = os.Args[1]
	}

	if _, err := os.Stat(migrationDir); os.IsNotExist(err) {
		logger.Fatal("マイグレーションディレクトリが見つかりません", zap.String("dir", migrationDir))
	}

	// マイグレーション履歴テーブルの作成
	if err := createMigrationTable(ctx, db); err != nil {
		logger.Fatal("マイグレーション履歴テーブル作成に失敗しました", zap.Error(err))
	}

	// マイグレーション実行
	if err := runMigrations(ctx, db, migrationDir, logger); err != nil {
		logger.Fatal("マイグレーション実行に失敗しました", zap.Error(err))
	}

	logger.Info("すべてのマイグレーションが完了しました")
}

// createMigrationTable マイグレーション履歴テーブルを作成
func createMigrationTable(ctx context.Context, db *sql.DB) error {
	query := `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			id SERIAL PRIMARY KEY,
			filename VARCHAR(255) NOT NULL UNIQUE,
			executed_at TIMESTAMP NOT NULL DEFAULT NOW(),
			checksum VARCHAR(64) NOT NULL
		)`

	if _, err := db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("マイグレーション履歴テーブル作成エラー: %w", err)
	}
	return nil
}

// loadMigrations ディレクトリ内の.sqlファイルをファイル名順に読み込む
func loadMigrations(dir string) ([]migration, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.sql"))
	if err != nil {
		return nil, fmt.Errorf("マイグレーションファイル検索エラー: %w", err)
	}
	sort.Strings(files)

	migrations := make([]migration, 0, len(files))
	for _, file := range files {
		content, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("ファイル読み込みエラー %s: %w", filepath.Base(file), err)
		}
		migrations = append(migrations, migration{
			Filename: filepath.Base(file),
			Content:  content,
			Checksum: calculateChecksum(content),
		})
	}
	return migrations, nil
}

// pendingMigrations 未実行のマイグレーションを返す。実行済みファイルの内容が変わっていればエラー
func pendingMigrations(all []migration, executed map[string]string) ([]migration, error) {
	var pending []migration
	for _, m := range all {
		checksum, ok := executed[m.Filename]
		if !ok {
			pending = append(pending, m)
			continue
		}
		if checksum != m.Checksum {
			return nil, fmt.Errorf("実行済みマイグレーションが変更されています: %s", m.Filename)
		}
	}
	return pending, nil
}

// runMigrations マイグレーションを実行
func runMigrations(ctx context.Context, db *sql.DB, migrationDir string, logger *zap.Logger) error {
	all, err := loadMigrations(migrationDir)
	if err != nil {
		return err
	}
	if len(all) == 0 {
		logger.Warn("マイグレーションファイルが見つかりません", zap.String("dir", migrationDir))
		return nil
	}

	// 実行済みマイグレーションを取得
	executed, err := getExecutedMigrations(ctx, db)
	if err != nil {
		return fmt.Errorf("実行済みマイグレーション取得エラー: %w", err)
	}

	pending, err := pendingMigrations(all, executed)
	if err != nil {
		return err
	}
	logger.Info("マイグレーション確認",
		zap.Int("total", len(all)),
		zap.Int("pending", len(pending)),
	)

	for _, m := range pending {
		logger.Info("実行中", zap.String("file", m.Filename))
		if err := applyMigration(ctx, db, m); err != nil {
			return err
		}
		logger.Info("完了", zap.String("file", m.Filename), zap.String("checksum", m.Checksum[:12]))
	}

	return nil
}

// applyMigration 1ファイルを1トランザクションで適用
func applyMigration(ctx context.Context, db *sql.DB, m migration) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("トランザクション開始エラー %s: %w", m.Filename, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, string(m.Content)); err != nil {
		return fmt.Errorf("マイグレーション実行エラー %s: %w", m.Filename, err)
	}

	// マイグレーション履歴に記録
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO schema_migrations (filename, checksum) VALUES ($1, $2)",
		m.Filename, m.Checksum,
	); err != nil {
		return fmt.Errorf("マイグレーション履歴記録エラー %s: %w", m.Filename, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("トランザクションコミットエラー %s: %w", m.Filename, err)
	}
	return nil
}

// getExecutedMigrations 実行済みマイグレーションとチェックサムを取得
func getExecutedMigrations(ctx context.Context, db *sql.DB) (map[string]string, error) {
	executed := make(map[string]string)

	rows, err := db.QueryContext(ctx, "SELECT filename, checksum FROM schema_migrations")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var filename, checksum string
		if err := rows.Scan(&filename, &checksum); err != nil {
			return nil, err
		}
		executed[filename] = checksum
	}

	return executed, rows.Err()
}

// calculateChecksum ファイル内容のSHA-256チェックサムを計算
func calculateChecksum(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}
