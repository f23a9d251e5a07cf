package allocation

import (
	"context"
	"errors"
	"sync"
	"testing"

	"assetverse-backend/internal/application/inventory"
	"assetverse-backend/internal/domain"
	"assetverse-backend/internal/pkg/constants"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var (
	hrActor = Actor{Email: "hr@acme.io", Name: "Hana", Role: constants.HR, CompanyName: "Acme", CompanyLogo: "https://cdn.acme.io/logo.png"}
	otherHR = Actor{Email: "hr@globex.io", Name: "Gus", Role: constants.HR, CompanyName: "Globex"}
	empEli  = Actor{Email: "eli@mail.io", Name: "Eli", Role: constants.Employee}
	empMia  = Actor{Email: "mia@mail.io", Name: "Mia", Role: constants.Employee}
)

var errInjected = errors.New("injected store failure")

// injector fires a one-shot action before the next matching write, after skipping the
// first skip matches.
type injector struct {
	mu    sync.Mutex
	rules map[string]*rule
}

type rule struct {
	skip   int
	action func(tx *gorm.DB)
}

func (in *injector) arm(op, table string, skip int, action func(tx *gorm.DB)) {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.rules[op+":"+table] = &rule{skip: skip, action: action}
}

func (in *injector) fail(op, table string, skip int) {
	in.arm(op, table, skip, func(tx *gorm.DB) { tx.AddError(errInjected) })
}

func (in *injector) hook(op string) func(tx *gorm.DB) {
	return func(tx *gorm.DB) {
		key := op + ":" + tx.Statement.Table
		in.mu.Lock()
		r, ok := in.rules[key]
		if ok && r.skip > 0 {
			r.skip--
			ok = false
		} else if ok {
			delete(in.rules, key)
		}
		in.mu.Unlock()
		if ok {
			r.action(tx)
		}
	}
}

type fixture struct {
	db     *gorm.DB
	c      *Coordinator
	faults *injector
}

func setupCoordinator(t *testing.T, atomic bool) *fixture {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(domain.Models()...))

	in := &injector{rules: map[string]*rule{}}
	require.NoError(t, db.Callback().Create().Before("gorm:create").Register("test:inject_create", in.hook("create")))
	require.NoError(t, db.Callback().Update().Before("gorm:update").Register("test:inject_update", in.hook("update")))
	require.NoError(t, db.Callback().Delete().Before("gorm:delete").Register("test:inject_delete", in.hook("delete")))

	return &fixture{db: db, c: New(db, atomic), faults: in}
}

func eachMode(t *testing.T, fn func(t *testing.T, f *fixture)) {
	for _, mode := range []struct {
		name   string
		atomic bool
	}{{"transactional", true}, {"compensating", false}} {
		t.Run(mode.name, func(t *testing.T) {
			fn(t, setupCoordinator(t, mode.atomic))
		})
	}
}

func (f *fixture) asset(t *testing.T, qty int) *domain.Asset {
	a, err := f.c.CreateAsset(context.Background(), hrActor, inventory.CreateAssetInput{
		Name: "ThinkPad X1", Image: "https://cdn.acme.io/x1.png", Type: domain.AssetReturnable, Quantity: qty,
	})
	require.NoError(t, err)
	return a
}

func (f *fixture) submit(t *testing.T, emp Actor, assetID uuid.UUID) *domain.Request {
	r, err := f.c.SubmitRequest(context.Background(), emp, assetID, "for onboarding")
	require.NoError(t, err)
	return r
}

func (f *fixture) available(t *testing.T, assetID uuid.UUID) int {
	a, err := f.c.Inventory.Get(context.Background(), assetID)
	require.NoError(t, err)
	return a.AvailableQuantity
}

func (f *fixture) request(t *testing.T, id uuid.UUID) *domain.Request {
	r, err := f.c.Requests.Get(context.Background(), id)
	require.NoError(t, err)
	return r
}

func (f *fixture) count(t *testing.T, model interface{}, query string, args ...interface{}) int64 {
	var n int64
	require.NoError(t, f.db.Model(model).Where(query, args...).Count(&n).Error)
	return n
}

func (f *fixture) assignmentsFor(t *testing.T, requestID uuid.UUID) int64 {
	return f.count(t, &domain.Assignment{}, "request_id = ?", requestID)
}

func (f *fixture) activeAffiliations(t *testing.T, email, company string) int64 {
	return f.count(t, &domain.Affiliation{}, "employee_email = ? AND company_name = ? AND status = ?",
		email, company, domain.AffiliationActive)
}
