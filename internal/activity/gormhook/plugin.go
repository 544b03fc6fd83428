// Package gormhook logs entity lifecycle events from gorm callbacks for
// models implementing capture.Loggable.
package gormhook

import (
	"context"
	"reflect"

	"gorm.io/gorm"

	"vowly/internal/activity"
	"vowly/internal/activity/capture"
)

const originalKey = "vowly:activity_original"

// Observer receives the lifecycle events. *pipeline.Observer satisfies it.
type Observer interface {
	Registry() *capture.Registry
	AfterCreate(ctx context.Context, entity capture.Loggable)
	AfterUpdate(ctx context.Context, entity capture.Loggable, original map[string]any)
	AfterSoftDelete(ctx context.Context, entity capture.Loggable)
}

// Plugin registers the activity callbacks. Install with db.Use.
type Plugin struct {
	observer Observer
}

var _ gorm.Plugin = (*Plugin)(nil)

func New(observer Observer) *Plugin {
	return &Plugin{observer: observer}
}

func (p *Plugin) Name() string {
	return "vowly:activity"
}

func (p *Plugin) Initialize(db *gorm.DB) error {
	cb := db.Callback()
	if err := cb.Create().After("gorm:create").Register("vowly:activity_after_create", p.afterCreate); err != nil {
		return err
	}
	if err := cb.Update().Before("gorm:update").Register("vowly:activity_before_update", p.beforeUpdate); err != nil {
		return err
	}
	if err := cb.Update().After("gorm:update").Register("vowly:activity_after_update", p.afterUpdate); err != nil {
		return err
	}
	return cb.Delete().After("gorm:delete").Register("vowly:activity_after_delete", p.afterDelete)
}

func (p *Plugin) afterCreate(db *gorm.DB) {
	if db.Error != nil {
		return
	}
	if entity, ok := loggable(db); ok {
		p.observer.AfterCreate(db.Statement.Context, entity)
	}
}

// beforeUpdate loads the persisted row so the diff has a baseline.
func (p *Plugin) beforeUpdate(db *gorm.DB) {
	if db.Error != nil {
		return
	}
	entity, ok := loggable(db)
	if !ok || entity.ActivityID() == "" {
		return
	}
	if !p.observer.Registry().Logs(entity.ActivityKind(), activity.EventUpdated) {
		return
	}
	original, ok := reload(db, entity)
	if !ok {
		// Without a baseline no diff can be trusted.
		return
	}
	db.Statement.Settings.Store(originalKey, original.ActivityAttributes())
}

// afterUpdate diffs the row as stored against the baseline. The model the
// caller passed may be partial, e.g. Model(&Wedding{ID: 1}).Update(...), so
// it is never diffed directly.
func (p *Plugin) afterUpdate(db *gorm.DB) {
	if db.Error != nil {
		return
	}
	raw, ok := db.Statement.Settings.LoadAndDelete(originalKey)
	if !ok {
		return
	}
	original, _ := raw.(map[string]any)
	entity, ok := loggable(db)
	if !ok {
		return
	}
	current, ok := reload(db, entity)
	if !ok {
		return
	}
	p.observer.AfterUpdate(db.Statement.Context, current, original)
}

// reload reads entity's row by primary key inside the statement's
// connection, so an open transaction sees its own writes.
func reload(db *gorm.DB, entity capture.Loggable) (capture.Loggable, bool) {
	schema := db.Statement.Schema
	if schema == nil || schema.PrioritizedPrimaryField == nil {
		return nil, false
	}
	rv := reflect.Indirect(reflect.ValueOf(entity))
	if rv.Kind() != reflect.Struct || rv.Type() != schema.ModelType {
		return nil, false
	}
	pk := schema.PrioritizedPrimaryField
	id, zero := pk.ValueOf(db.Statement.Context, rv)
	if zero {
		return nil, false
	}

	row := reflect.New(schema.ModelType).Interface()
	err := db.Session(&gorm.Session{NewDB: true, SkipHooks: true}).
		WithContext(db.Statement.Context).
		Where(pk.DBName+" = ?", id).
		Take(row).Error
	if err != nil {
		return nil, false
	}
	loaded, ok := row.(capture.Loggable)
	return loaded, ok
}

// afterDelete logs soft deletes only. Hard deletes leave no row to describe.
func (p *Plugin) afterDelete(db *gorm.DB) {
	if db.Error != nil || db.Statement.Unscoped || !softDeletes(db) {
		return
	}
	if entity, ok := loggable(db); ok {
		p.observer.AfterSoftDelete(db.Statement.Context, entity)
	}
}

func softDeletes(db *gorm.DB) bool {
	if db.Statement.Schema == nil {
		return false
	}
	field := db.Statement.Schema.LookUpField("DeletedAt")
	return field != nil && field.FieldType == reflect.TypeOf(gorm.DeletedAt{})
}

// loggable returns the single entity the statement operates on. Batch
// statements are not logged.
func loggable(db *gorm.DB) (capture.Loggable, bool) {
	for _, candidate := range []any{db.Statement.Model, db.Statement.Dest} {
		if entity, ok := candidate.(capture.Loggable); ok && entity != nil {
			if v := reflect.ValueOf(entity); v.Kind() == reflect.Ptr && v.IsNil() {
				continue
			}
			return entity, true
		}
	}
	return nil, false
}
