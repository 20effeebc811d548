package migration

import (
	authorization "github.com/smallbiznis/ecclesia/internal/authorization"
	auditdomain "github.com/smallbiznis/ecclesia/internal/audit/domain"
	cemeterydomain "github.com/smallbiznis/ecclesia/internal/cemetery/domain"
	clientdomain "github.com/smallbiznis/ecclesia/internal/client/domain"
	ledgerdomain "github.com/smallbiznis/ecclesia/internal/ledger/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(Apply),
)

// Apply runs the SQL migrations on postgres. The embedded SQL is postgres
// specific, so mysql and sqlite deployments get the schema from the models.
func Apply(conn *gorm.DB, log *zap.Logger) error {
	if conn.Dialector.Name() != "postgres" {
		log.Info("migrations: auto-migrating models", zap.String("dialect", conn.Dialector.Name()))
		return AutoMigrate(conn)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return err
	}
	version, err := RunMigrations(sqlDB)
	if err != nil {
		return err
	}
	log.Info("migrations: schema up to date", zap.Uint("version", version))
	return nil
}

// Models lists every table the service owns, in dependency order.
func Models() []any {
	return []any{
		&cemeterydomain.Cemetery{},
		&cemeterydomain.Parcel{},
		&cemeterydomain.Row{},
		&clientdomain.Client{},
		&cemeterydomain.Grave{},
		&cemeterydomain.Concession{},
		&cemeterydomain.Burial{},
		&cemeterydomain.ConcessionPayment{},
		&ledgerdomain.LedgerAccount{},
		&ledgerdomain.LedgerEntry{},
		&ledgerdomain.LedgerEntryLine{},
		&auditdomain.AuditLog{},
		&authorization.ParishMember{},
	}
}

func AutoMigrate(conn *gorm.DB) error {
	return conn.AutoMigrate(Models()...)
}
