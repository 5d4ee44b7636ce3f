// Package database はPostgreSQL接続とusersテーブルのスキーマ管理を提供する。
package database

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

// usersSchema はバイナリに同梱するusersテーブルのスキーマ定義。
// 000001_create_users がテーブルとemailの一意インデックスを作成する。
//
//go:embed migrations/*.sql
var usersSchema embed.FS

const schemaDir = "migrations"

// schemaSource は同梱スキーマをgolang-migrateのソースとして開く。
func schemaSource() (source.Driver, error) {
	sub, err := fs.Sub(usersSchema, schemaDir)
	if err != nil {
		return nil, fmt.Errorf("open embedded schema: %w", err)
	}
	drv, err := iofs.New(sub, ".")
	if err != nil {
		return nil, fmt.Errorf("create schema source: %w", err)
	}
	return drv, nil
}

// NewMigrator はusersスキーマを対象とするMigrateを生成する。
// Down/Stepsを直接扱うテストや運用作業向け。
func NewMigrator(databaseURL string) (*migrate.Migrate, error) {
	src, err := schemaSource()
	if err != nil {
		return nil, err
	}

	m, err := migrate.NewWithSourceInstance("iofs", src, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect migrator: %w", err)
	}
	return m, nil
}

// RunMigrations は未適用のスキーマ変更をすべて適用し、適用後のバージョンを返す。
// 変更がない場合もエラーにはしない。dirtyな状態はエラーとして返す。
func RunMigrations(databaseURL string) (uint, error) {
	m, err := NewMigrator(databaseURL)
	if err != nil {
		return 0, err
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return 0, fmt.Errorf("apply users schema: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	if dirty {
		return version, fmt.Errorf("users schema is dirty at version %d", version)
	}
	return version, nil
}
