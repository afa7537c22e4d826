package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/repotrack/billing-service/internal/domain"
	"github.com/repotrack/billing-service/internal/store"
)

// fakeRepo is an in-memory Repository with the same sentinel-error
// semantics as the Postgres implementation.
type fakeRepo struct {
	rates   []domain.RateConfig
	records map[uuid.UUID]*domain.BillingRecord
	proofs  map[uuid.UUID]*domain.PaymentProof
	qrs     map[uuid.UUID]*domain.PaymentQR

	createRecordErr error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		records: make(map[uuid.UUID]*domain.BillingRecord),
		proofs:  make(map[uuid.UUID]*domain.PaymentProof),
		qrs:     make(map[uuid.UUID]*domain.PaymentQR),
	}
}

func (f *fakeRepo) InsertActiveRateConfig(ctx context.Context, rc *domain.RateConfig) error {
	for i := range f.rates {
		if f.rates[i].Tier == rc.Tier {
			f.rates[i].IsActive = false
		}
	}
	f.rates = append(f.rates, *rc)
	return nil
}

func (f *fakeRepo) GetActiveRateConfig(ctx context.Context, tier domain.Tier) (*domain.RateConfig, error) {
	for i := range f.rates {
		if f.rates[i].Tier == tier && f.rates[i].IsActive {
			rc := f.rates[i]
			return &rc, nil
		}
	}
	return nil, store.ErrRateNotFound
}

func (f *fakeRepo) ListRateConfigs(ctx context.Context, tier domain.Tier) ([]domain.RateConfig, error) {
	var out []domain.RateConfig
	for i := range f.rates {
		if f.rates[i].Tier == tier {
			out = append(out, f.rates[i])
		}
	}
	return out, nil
}

func (f *fakeRepo) CreateBillingRecord(ctx context.Context, rec *domain.BillingRecord) error {
	if f.createRecordErr != nil {
		return f.createRecordErr
	}
	for _, existing := range f.records {
		if existing.PayerID == rec.PayerID && existing.Period == rec.Period {
			return store.ErrDuplicateRecord
		}
	}
	cp := *rec
	f.records[rec.ID] = &cp
	return nil
}

func (f *fakeRepo) GetBillingRecordByID(ctx context.Context, recordID uuid.UUID) (*domain.BillingRecord, error) {
	rec, ok := f.records[recordID]
	if !ok {
		return nil, store.ErrRecordNotFound
	}
	cp := *rec
	return &cp, nil
}

func (f *fakeRepo) ListBillingRecords(ctx context.Context, payeeID uuid.UUID, filter domain.RecordFilter) ([]domain.BillingRecord, error) {
	var out []domain.BillingRecord
	for _, rec := range f.records {
		if rec.PayeeID != payeeID {
			continue
		}
		if filter.PayerID != nil && rec.PayerID != *filter.PayerID {
			continue
		}
		if filter.Status != nil && rec.Status != *filter.Status {
			continue
		}
		if filter.Period != nil && rec.Period != *filter.Period {
			continue
		}
		out = append(out, *rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeRepo) MarkOverdueRecords(ctx context.Context, now time.Time) ([]domain.BillingRecord, error) {
	var out []domain.BillingRecord
	for _, rec := range f.records {
		if rec.Status == domain.RecordStatusPending && rec.DueDate.Before(now) {
			rec.Status = domain.RecordStatusOverdue
			rec.UpdatedAt = now
			out = append(out, *rec)
		}
	}
	return out, nil
}

func (f *fakeRepo) CreateProof(ctx context.Context, p *domain.PaymentProof) error {
	cp := *p
	f.proofs[p.ID] = &cp
	return nil
}

func (f *fakeRepo) GetProofByID(ctx context.Context, proofID uuid.UUID) (*domain.PaymentProof, error) {
	p, ok := f.proofs[proofID]
	if !ok {
		return nil, store.ErrProofNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeRepo) ListProofsByPayee(ctx context.Context, payeeID uuid.UUID, status *domain.ProofStatus) ([]domain.PaymentProof, error) {
	var out []domain.PaymentProof
	for _, p := range f.proofs {
		if p.PayeeID != payeeID {
			continue
		}
		if status != nil && p.Status != *status {
			continue
		}
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeRepo) HasRejectedProofForRecord(ctx context.Context, recordID uuid.UUID) (bool, error) {
	for _, p := range f.proofs {
		if p.BillingRecordID != nil && *p.BillingRecordID == recordID && p.Status == domain.ProofStatusRejected {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeRepo) RejectProof(ctx context.Context, proofID, reviewerID uuid.UUID, notes string, reviewedAt time.Time) error {
	p, ok := f.proofs[proofID]
	if !ok {
		return store.ErrProofNotFound
	}
	if p.Status != domain.ProofStatusPending {
		return store.ErrProofNotPending
	}
	p.Status = domain.ProofStatusRejected
	p.ReviewerID = &reviewerID
	p.ReviewerNotes = &notes
	p.ReviewedAt = &reviewedAt
	return nil
}

func (f *fakeRepo) ApproveProofAndMarkRecordPaid(ctx context.Context, proofID, recordID, reviewerID uuid.UUID, notes string, now time.Time) (*domain.BillingRecord, error) {
	rec, ok := f.records[recordID]
	if !ok {
		return nil, store.ErrRecordNotFound
	}
	if rec.Status == domain.RecordStatusPaid {
		return nil, store.ErrRecordNotPayable
	}
	p, ok := f.proofs[proofID]
	if !ok {
		return nil, store.ErrProofNotFound
	}
	if p.Status != domain.ProofStatusPending {
		return nil, store.ErrProofNotPending
	}

	p.Status = domain.ProofStatusApproved
	p.BillingRecordID = &recordID
	p.ReviewerID = &reviewerID
	p.ReviewerNotes = &notes
	p.ReviewedAt = &now

	rec.Status = domain.RecordStatusPaid
	rec.PaidDate = &now
	rec.ProofID = &proofID
	rec.UpdatedAt = now
	cp := *rec
	return &cp, nil
}

func (f *fakeRepo) ListPurgeableProofImages(ctx context.Context, cutoff time.Time) ([]domain.PaymentProof, error) {
	var out []domain.PaymentProof
	for _, p := range f.proofs {
		if p.Status == domain.ProofStatusApproved && p.ImageRef != nil &&
			p.ReviewedAt != nil && !p.ReviewedAt.After(cutoff) {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (f *fakeRepo) ClearProofImage(ctx context.Context, proofID uuid.UUID) error {
	p, ok := f.proofs[proofID]
	if !ok {
		return store.ErrProofNotFound
	}
	p.ImageRef = nil
	return nil
}

func (f *fakeRepo) CreateQR(ctx context.Context, qr *domain.PaymentQR) error {
	cp := *qr
	f.qrs[qr.ID] = &cp
	return nil
}

func (f *fakeRepo) GetQRByID(ctx context.Context, qrID, ownerID uuid.UUID) (*domain.PaymentQR, error) {
	qr, ok := f.qrs[qrID]
	if !ok || qr.OwnerID != ownerID {
		return nil, store.ErrQRNotFound
	}
	cp := *qr
	return &cp, nil
}

func (f *fakeRepo) ListQRsByOwner(ctx context.Context, ownerID uuid.UUID) ([]domain.PaymentQR, error) {
	var out []domain.PaymentQR
	for _, qr := range f.qrs {
		if qr.OwnerID == ownerID {
			out = append(out, *qr)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeRepo) ToggleQRActive(ctx context.Context, qrID, ownerID uuid.UUID) (*domain.PaymentQR, error) {
	qr, ok := f.qrs[qrID]
	if !ok || qr.OwnerID != ownerID {
		return nil, store.ErrQRNotFound
	}
	qr.IsActive = !qr.IsActive
	if qr.IsActive {
		for _, other := range f.qrs {
			if other.ID != qrID && other.OwnerID == ownerID {
				other.IsActive = false
			}
		}
	}
	cp := *qr
	return &cp, nil
}

func (f *fakeRepo) DeleteQRIfInactive(ctx context.Context, qrID, ownerID uuid.UUID) (string, error) {
	qr, ok := f.qrs[qrID]
	if !ok || qr.OwnerID != ownerID {
		return "", store.ErrQRNotFound
	}
	if qr.IsActive {
		return "", store.ErrQRActive
	}
	delete(f.qrs, qrID)
	return qr.ImageRef, nil
}

// fakeDirectory serves canned subordinate lists keyed by owner and tier.
type fakeDirectory struct {
	subs    map[string][]domain.Subordinate
	members map[domain.Tier][]domain.Subordinate
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{
		subs:    make(map[string][]domain.Subordinate),
		members: make(map[domain.Tier][]domain.Subordinate),
	}
}

func dirKey(ownerID uuid.UUID, tier domain.Tier) string {
	return fmt.Sprintf("%s/%s", ownerID, tier)
}

func (f *fakeDirectory) add(ownerID uuid.UUID, tier domain.Tier, sub domain.Subordinate) {
	key := dirKey(ownerID, tier)
	f.subs[key] = append(f.subs[key], sub)
	f.members[tier] = append(f.members[tier], sub)
}

func (f *fakeDirectory) ListSubordinates(ctx context.Context, ownerID uuid.UUID, tier domain.Tier) ([]domain.Subordinate, error) {
	return f.subs[dirKey(ownerID, tier)], nil
}

func (f *fakeDirectory) ListTierMembers(ctx context.Context, tier domain.Tier) ([]domain.Subordinate, error) {
	return f.members[tier], nil
}

// fakeBlobs is an in-memory blob store.
type fakeBlobs struct {
	blobs     map[string][]byte
	nextRef   int
	deleteErr error
}

func newFakeBlobs() *fakeBlobs {
	return &fakeBlobs{blobs: make(map[string][]byte)}
}

func (f *fakeBlobs) Save(ctx context.Context, data []byte) (string, error) {
	f.nextRef++
	ref := fmt.Sprintf("blob-%d", f.nextRef)
	f.blobs[ref] = data
	return ref, nil
}

func (f *fakeBlobs) Load(ctx context.Context, ref string) ([]byte, error) {
	data, ok := f.blobs[ref]
	if !ok {
		return nil, fmt.Errorf("blob %s not found", ref)
	}
	return data, nil
}

func (f *fakeBlobs) Delete(ctx context.Context, ref string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	delete(f.blobs, ref)
	return nil
}

// capturingPublisher records every published event.
type capturingPublisher struct {
	events []publishedEvent
}

type publishedEvent struct {
	routingKey string
	body       interface{}
}

func (p *capturingPublisher) Publish(ctx context.Context, routingKey string, body interface{}) error {
	p.events = append(p.events, publishedEvent{routingKey: routingKey, body: body})
	return nil
}

func (p *capturingPublisher) keys() []string {
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.routingKey)
	}
	return out
}

type testEnv struct {
	repo      *fakeRepo
	directory *fakeDirectory
	blobs     *fakeBlobs
	publisher *capturingPublisher
	service   Service
}

func newTestEnv(opts Options) *testEnv {
	repo := newFakeRepo()
	directory := newFakeDirectory()
	blobs := newFakeBlobs()
	publisher := &capturingPublisher{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	return &testEnv{
		repo:      repo,
		directory: directory,
		blobs:     blobs,
		publisher: publisher,
		service:   NewService(repo, directory, blobs, publisher, logger, opts),
	}
}
