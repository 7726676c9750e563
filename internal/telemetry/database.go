package telemetry

import (
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
)

const (
	spanInstanceKey = "telemetry:span"
	maxStatementLen = 500

	// AreaKey groups database spans by the part of the product they serve.
	AreaKey = attribute.Key("campuslink.area")
)

// tableAreas maps each table to the product area that owns it. Unknown
// tables (join tables gorm builds on the fly, test tables) report "other".
var tableAreas = map[string]string{
	"users":                "accounts",
	"conversations":        "chat",
	"conversation_members": "chat",
	"messages":             "chat",
	"posts":                "posts",
	"post_reactions":       "posts",
	"comments":             "posts",
}

func areaOf(table string) string {
	if area, ok := tableAreas[table]; ok {
		return area
	}
	return "other"
}

// GORMTracingPlugin emits one client span per statement, named
// "<OPERATION> <table>", as a child of the request span. system is the
// db.system attribute, "postgres" or "sqlite".
func GORMTracingPlugin(system string) gorm.Plugin {
	return &queryTracer{tracer: otel.Tracer("campuslink/gorm"), system: system}
}

type queryTracer struct {
	tracer trace.Tracer
	system string
}

func (q *queryTracer) Name() string {
	return "telemetry:tracing"
}

func (q *queryTracer) Initialize(db *gorm.DB) error {
	cb := db.Callback()
	return errors.Join(
		cb.Create().Before("gorm:create").Register("telemetry:create_start", q.start("INSERT")),
		cb.Create().After("gorm:create").Register("telemetry:create_end", q.end),
		cb.Query().Before("gorm:query").Register("telemetry:query_start", q.start("SELECT")),
		cb.Query().After("gorm:query").Register("telemetry:query_end", q.end),
		cb.Update().Before("gorm:update").Register("telemetry:update_start", q.start("UPDATE")),
		cb.Update().After("gorm:update").Register("telemetry:update_end", q.end),
		cb.Delete().Before("gorm:delete").Register("telemetry:delete_start", q.start("DELETE")),
		cb.Delete().After("gorm:delete").Register("telemetry:delete_end", q.end),
		// Row covers the reaction recount, which scans aggregate rows.
		cb.Row().Before("gorm:row").Register("telemetry:row_start", q.start("SELECT")),
		cb.Row().After("gorm:row").Register("telemetry:row_end", q.end),
	)
}

func (q *queryTracer) start(operation string) func(*gorm.DB) {
	return func(db *gorm.DB) {
		ctx := db.Statement.Context
		if ctx == nil {
			return
		}

		table := db.Statement.Table
		name := operation
		if table != "" {
			name += " " + table
		}

		_, span := q.tracer.Start(ctx, name,
			trace.WithSpanKind(trace.SpanKindClient),
			trace.WithAttributes(
				semconv.DBSystemKey.String(q.system),
				semconv.DBOperationKey.String(operation),
				semconv.DBSQLTableKey.String(table),
				AreaKey.String(areaOf(table)),
			),
		)
		db.InstanceSet(spanInstanceKey, span)
	}
}

func (q *queryTracer) end(db *gorm.DB) {
	raw, ok := db.InstanceGet(spanInstanceKey)
	if !ok {
		return
	}
	span, ok := raw.(trace.Span)
	if !ok {
		return
	}
	defer span.End()

	// Statement text only; bound values never leave the process.
	if sql := db.Statement.SQL.String(); sql != "" {
		if len(sql) > maxStatementLen {
			sql = sql[:maxStatementLen]
		}
		span.SetAttributes(semconv.DBStatementKey.String(sql))
	}
	span.SetAttributes(attribute.Int64("db.rows_affected", db.RowsAffected))

	if db.Error != nil && !errors.Is(db.Error, gorm.ErrRecordNotFound) {
		span.RecordError(db.Error)
		span.SetStatus(codes.Error, db.Error.Error())
	}
}
