package analytics

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/retail-insights/internal/reconcile"
)

type stubRepo struct {
	snap          reconcile.Snapshot
	productCalls  atomic.Int32
	purchaseCalls atomic.Int32
	salesCalls    atomic.Int32
	salesErr      error
}

func (s *stubRepo) ListProducts(context.Context) ([]reconcile.RawProduct, error) {
	s.productCalls.Add(1)
	return s.snap.Products, nil
}

func (s *stubRepo) ListPurchases(context.Context) ([]reconcile.RawPurchase, error) {
	s.purchaseCalls.Add(1)
	return s.snap.Purchases, nil
}

func (s *stubRepo) ListSales(context.Context) ([]reconcile.RawSale, error) {
	s.salesCalls.Add(1)
	return s.snap.Sales, s.salesErr
}

type snapshotRepo struct {
	stubRepo
	snapshotCalls int
}

func (s *snapshotRepo) Snapshot(context.Context) (reconcile.Snapshot, error) {
	s.snapshotCalls++
	return s.snap, nil
}

type recorderStub struct {
	rows   int
	issues map[reconcile.IssueKind]int
	calls  int
}

func (r *recorderStub) ObserveReconcile(rows int, issues map[reconcile.IssueKind]int, _ time.Duration) {
	r.rows = rows
	r.issues = issues
	r.calls++
}

func fixtureSnapshot() reconcile.Snapshot {
	return reconcile.Snapshot{
		Products: []reconcile.RawProduct{
			{ProductID: "p1", Name: "Kopi Arabica", Category: "Beverage", Stock: "20"},
			{ProductID: "P2", Name: "Teh Hijau", Category: "Beverage", Stock: "5"},
			{ProductID: "p3", Name: "Gula Aren", Stock: "n/a"},
		},
		Purchases: []reconcile.RawPurchase{
			{PurchaseID: "PO-1", ProductID: "p1", Vendor: "Sumber Jaya", Quantity: "10", CostPrice: "10", OrderDate: "2025-01-03", DueDate: "2025-01-20", PaymentStatus: "paid"},
			{PurchaseID: "PO-1", ProductID: "P1", Vendor: "Sumber Jaya", Quantity: "10", CostPrice: "12", OrderDate: "2025-01-04", DueDate: "2025-01-20", PaymentStatus: "Pending"},
			{PurchaseID: "PO-2", ProductID: "p4", ProductName: "Susu UHT", Category: "Dairy", Vendor: "Mitra", Quantity: "6", CostPrice: "4", OrderDate: "2025-02-01", DueDate: "2025-03-10", PaymentStatus: "Pending"},
		},
		Sales: []reconcile.RawSale{
			{SaleID: "S1", ProductID: "p1", Quantity: "3", SellingPrice: "10", SaleDate: "2025-01-10"},
			{SaleID: "S2", ProductID: "p1", Quantity: "2", SellingPrice: "15", SaleDate: "2025-01-21"},
			{SaleID: "S3", ProductID: "p5", Quantity: "4", SellingPrice: "7.5", SaleDate: "2025-02-02"},
		},
	}
}

func newTestService(t *testing.T, repo Repository) (*Service, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	svc := NewService(repo, NewCache(client, time.Minute), reconcile.DefaultOptions(), nil).
		WithNow(func() time.Time { return time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC) })
	return svc, mr
}

func TestSnapshotIsCachedUntilBump(t *testing.T) {
	repo := &stubRepo{snap: fixtureSnapshot()}
	svc, _ := newTestService(t, repo)
	ctx := context.Background()

	snap, err := svc.Snapshot(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(snap.Products) != 3 || len(snap.Sales) != 3 {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
	if _, err := svc.Snapshot(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := repo.salesCalls.Load(); got != 1 {
		t.Fatalf("expected cached snapshot, repo called %d times", got)
	}

	ver, err := svc.Invalidate(ctx)
	if err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if ver != 2 {
		t.Fatalf("expected version 2 after bump, got %d", ver)
	}
	repo.snap.Sales = repo.snap.Sales[:1]
	snap, err = svc.Snapshot(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(snap.Sales) != 1 {
		t.Fatalf("expected refreshed snapshot, got %d sales", len(snap.Sales))
	}
	if got := repo.productCalls.Load(); got != 2 {
		t.Fatalf("expected reload after bump, calls %d", got)
	}
}

func TestSnapshotPrefersSnapshotReader(t *testing.T) {
	repo := &snapshotRepo{stubRepo: stubRepo{snap: fixtureSnapshot()}}
	svc := NewService(repo, nil, reconcile.DefaultOptions(), nil)

	if _, err := svc.Snapshot(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.snapshotCalls != 1 {
		t.Fatalf("expected Snapshot to be used, calls %d", repo.snapshotCalls)
	}
	if repo.productCalls.Load() != 0 {
		t.Fatalf("expected no per-table reads")
	}
}

func TestSnapshotPropagatesTableError(t *testing.T) {
	boom := errors.New("sales table locked")
	repo := &stubRepo{snap: fixtureSnapshot(), salesErr: boom}
	svc, _ := newTestService(t, repo)

	_, err := svc.Snapshot(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped table error, got %v", err)
	}
}

func TestReconcileRejectsInvalidOptions(t *testing.T) {
	svc, _ := newTestService(t, &stubRepo{snap: fixtureSnapshot()})
	opts := svc.Options()
	opts.TopN = 0
	_, err := svc.Reconcile(context.Background(), opts)
	if !errors.Is(err, reconcile.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestReconcileRecordsIssues(t *testing.T) {
	rec := &recorderStub{}
	svc, _ := newTestService(t, &stubRepo{snap: fixtureSnapshot()})
	svc.WithRecorder(rec)

	res, err := svc.Reconcile(context.Background(), svc.Options())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.View.Len() != 5 {
		t.Fatalf("expected 5 rows, got %d", res.View.Len())
	}
	if rec.calls != 1 || rec.rows != 5 {
		t.Fatalf("unexpected recorder state: %+v", rec)
	}
	if rec.issues[reconcile.IssueMalformedRecord] != 1 {
		t.Fatalf("expected one malformed stock value, got %v", rec.issues)
	}
}

func TestKPISummary(t *testing.T) {
	svc, _ := newTestService(t, &stubRepo{snap: fixtureSnapshot()})

	kpi, err := svc.KPI(context.Background(), svc.Options())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if kpi.Products != 5 || kpi.ListedProducts != 3 {
		t.Fatalf("unexpected product counts: %+v", kpi.Totals)
	}
	if !kpi.Revenue.Equal(decimal.RequireFromString("92.5")) {
		t.Fatalf("expected revenue 92.5 got %s", kpi.Revenue)
	}
	// P2 (5), P3 (0), P4 (6), P5 (-4) are below 10.
	if kpi.LowStock != 4 {
		t.Fatalf("expected 4 low stock rows got %d", kpi.LowStock)
	}
	if kpi.PendingPayments != 2 || kpi.OverduePayments != 1 {
		t.Fatalf("unexpected payment counts pending=%d overdue=%d", kpi.PendingPayments, kpi.OverduePayments)
	}
	if kpi.Purchases.Orders != 2 || kpi.Purchases.Vendors != 2 {
		t.Fatalf("unexpected purchase summary: %+v", kpi.Purchases)
	}
	if !kpi.AsOf.Equal(time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected as-of truncated to the day, got %s", kpi.AsOf)
	}
}

func TestAlertsSplitNegativeStock(t *testing.T) {
	svc, _ := newTestService(t, &stubRepo{snap: fixtureSnapshot()})

	report, err := svc.Alerts(context.Background(), svc.Options())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(report.NegativeStock) != 1 || report.NegativeStock[0].ProductID != "P5" {
		t.Fatalf("expected P5 as negative stock, got %+v", report.NegativeStock)
	}
	if len(report.Overdue) != 1 || report.Overdue[0].ProductID != "P1" {
		t.Fatalf("expected the P1 line overdue, got %+v", report.Overdue)
	}
	if report.Count() != 6 {
		t.Fatalf("expected 6 alert entries got %d", report.Count())
	}
}

func TestListenForInvalidationFollowsPublishedVersion(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	cache := NewCache(client, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bumped := make(chan int64, 1)
	if err := cache.ListenForInvalidation(ctx, "", func(v int64) { bumped <- v }); err != nil {
		t.Fatalf("listen: %v", err)
	}
	if err := client.Publish(ctx, bumpChannel, "7").Err(); err != nil {
		t.Fatalf("publish: %v", err)
	}

	select {
	case v := <-bumped:
		if v != 7 {
			t.Fatalf("expected version 7 got %d", v)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for invalidation")
	}
	ver, err := cache.Version(ctx)
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if ver != 7 {
		t.Fatalf("expected local version 7 got %d", ver)
	}
}

func TestNilCacheLoadsEveryTime(t *testing.T) {
	repo := &stubRepo{snap: fixtureSnapshot()}
	svc := NewService(repo, nil, reconcile.DefaultOptions(), nil)
	for i := 0; i < 2; i++ {
		if _, err := svc.Snapshot(context.Background()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if repo.productCalls.Load() != 2 {
		t.Fatalf("expected two loads without cache, got %d", repo.productCalls.Load())
	}
	if ver, err := svc.Invalidate(context.Background()); err != nil || ver != 0 {
		t.Fatalf("expected no-op invalidate, got %d %v", ver, err)
	}
}
