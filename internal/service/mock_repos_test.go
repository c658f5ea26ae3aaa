package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/line/line-bot-sdk-go/v7/linebot"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/Nakkasenp65/register-item-delivery/internal/model"
	"github.com/Nakkasenp65/register-item-delivery/internal/repository"
	"github.com/Nakkasenp65/register-item-delivery/pkg/events"
	"github.com/Nakkasenp65/register-item-delivery/pkg/upload"
)

// ── Mock DeliveryRepository ──

type mockDeliveryRepo struct {
	mu         sync.Mutex
	deliveries map[primitive.ObjectID]*model.Delivery
	// duplicates makes the next N Create calls fail with a duplicate key error
	duplicates int
	createErr  error
	findErr    error
	creates    int
}

func newMockDeliveryRepo() *mockDeliveryRepo {
	return &mockDeliveryRepo{deliveries: make(map[primitive.ObjectID]*model.Delivery)}
}

func duplicateKeyError() error {
	return mongo.WriteException{WriteErrors: []mongo.WriteError{{Code: 11000, Message: "E11000 duplicate key error"}}}
}

func (m *mockDeliveryRepo) Create(_ context.Context, d *model.Delivery) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creates++
	if m.createErr != nil {
		return m.createErr
	}
	if m.duplicates > 0 {
		m.duplicates--
		return duplicateKeyError()
	}
	for _, existing := range m.deliveries {
		if existing.TrackingID == d.TrackingID {
			return duplicateKeyError()
		}
	}
	if d.ID.IsZero() {
		d.ID = primitive.NewObjectID()
	}
	cp := *d
	m.deliveries[d.ID] = &cp
	return nil
}

func (m *mockDeliveryRepo) GetByID(_ context.Context, id string) (*model.Delivery, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, repository.ErrInvalidID
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if d, ok := m.deliveries[oid]; ok {
		cp := *d
		return &cp, nil
	}
	return nil, mongo.ErrNoDocuments
}

func (m *mockDeliveryRepo) FindByIdentifierOrPhone(_ context.Context, lineUserID, phone string) ([]model.Delivery, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	result := []model.Delivery{}
	for _, d := range m.deliveries {
		if (lineUserID != "" && d.LineUserID == lineUserID) || (phone != "" && d.Phone == phone) {
			result = append(result, *d)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	return result, nil
}

func (m *mockDeliveryRepo) UpdateFields(_ context.Context, id string, fields map[string]interface{}) (*model.Delivery, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, repository.ErrInvalidID
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.deliveries[oid]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	for k, v := range fields {
		s, _ := v.(string)
		switch k {
		case "customerName":
			d.CustomerName = s
		case "phone":
			d.Phone = s
		case "addressDetails":
			d.AddressDetails = s
		case "subDistrict":
			d.SubDistrict = s
		case "district":
			d.District = s
		case "province":
			d.Province = s
		case "postalCode":
			d.PostalCode = s
		case "status":
			d.Status = s
		}
	}
	d.UpdatedAt = time.Now().UTC()
	cp := *d
	return &cp, nil
}

func (m *mockDeliveryRepo) List(_ context.Context, f model.DeliveryFilter) ([]model.Delivery, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := []model.Delivery{}
	for _, d := range m.deliveries {
		if f.Status != "" && d.Status != f.Status {
			continue
		}
		if !f.From.IsZero() && d.CreatedAt.Before(f.From) {
			continue
		}
		if !f.To.IsZero() && !d.CreatedAt.Before(f.To) {
			continue
		}
		result = append(result, *d)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	return result, nil
}

func (m *mockDeliveryRepo) EnsureIndexes(context.Context) error { return nil }
func (m *mockDeliveryRepo) Ping(context.Context) error          { return nil }

// seed stores d directly and returns its hex ID
func (m *mockDeliveryRepo) seed(d model.Delivery) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d.ID.IsZero() {
		d.ID = primitive.NewObjectID()
	}
	m.deliveries[d.ID] = &d
	return d.ID.Hex()
}

func (m *mockDeliveryRepo) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.deliveries)
}

// ── Mock LocationRepository ──

type mockLocationRepo struct {
	provinces []model.Province
	rows      []model.ZipCodeRow
	err       error
}

func strp(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func zipRow(pid int, pth, pen string, did int, dth, den string, sid int, sth, sen, zip string) model.ZipCodeRow {
	return model.ZipCodeRow{
		ZipCode:       zip,
		SubDistrictID: sid, SubDistrictTH: strp(sth), SubDistrictEN: strp(sen),
		DistrictID: did, DistrictTH: strp(dth), DistrictEN: strp(den),
		ProvinceID: pid, ProvinceTH: strp(pth), ProvinceEN: strp(pen),
	}
}

func newMockLocationRepo() *mockLocationRepo {
	return &mockLocationRepo{
		provinces: []model.Province{
			{ID: 1, NameEN: strp("Z")},
			{ID: 10, NameTH: strp("กรุงเทพมหานคร"), NameEN: strp("Bangkok")},
			{ID: 50, NameTH: strp("เชียงใหม่"), NameEN: strp("Chiang Mai")},
		},
		rows: []model.ZipCodeRow{
			zipRow(1, "", "Z", 2, "", "Y", 3, "", "X", "10110"),
			zipRow(10, "กรุงเทพมหานคร", "Bangkok", 1001, "พระนคร", "Phra Nakhon", 100101, "พระบรมมหาราชวัง", "Phra Borom Maha Ratchawang", "10200"),
			zipRow(10, "กรุงเทพมหานคร", "Bangkok", 1001, "พระนคร", "Phra Nakhon", 100102, "วังบูรพาภิรมย์", "Wang Burapha Phirom", "10200"),
			zipRow(10, "กรุงเทพมหานคร", "Bangkok", 1039, "วัฒนา", "Watthana", 103901, "คลองเตยเหนือ", "Khlong Toei Nuea", "10110"),
			zipRow(10, "กรุงเทพมหานคร", "Bangkok", 1039, "วัฒนา", "Watthana", 103902, "คลองตันเหนือ", "Khlong Tan Nuea", "10110"),
			zipRow(50, "เชียงใหม่", "Chiang Mai", 5001, "เมืองเชียงใหม่", "Mueang Chiang Mai", 500102, "ช้างเผือก", "Chang Phueak", "50200"),
			zipRow(50, "เชียงใหม่", "Chiang Mai", 5001, "เมืองเชียงใหม่", "Mueang Chiang Mai", 500102, "ช้างเผือก", "Chang Phueak", "50300"),
		},
	}
}

func (m *mockLocationRepo) ListProvinces(context.Context) ([]model.Province, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.provinces, nil
}

func (m *mockLocationRepo) ListRows(_ context.Context, q model.ZipCodeQuery) ([]model.ZipCodeRow, error) {
	if m.err != nil {
		return nil, m.err
	}
	var result []model.ZipCodeRow
	for _, r := range m.rows {
		if q.ProvinceID > 0 && r.ProvinceID != q.ProvinceID {
			continue
		}
		if q.DistrictID > 0 && r.DistrictID != q.DistrictID {
			continue
		}
		if q.SubDistrictID > 0 && r.SubDistrictID != q.SubDistrictID {
			continue
		}
		if q.PostalCode != "" && r.ZipCode != q.PostalCode {
			continue
		}
		if q.PostalPrefix != "" && !strings.HasPrefix(r.ZipCode, q.PostalPrefix) {
			continue
		}
		result = append(result, r)
		if q.Limit > 0 && len(result) >= q.Limit {
			break
		}
	}
	return result, nil
}

func (m *mockLocationRepo) Ping(context.Context) error { return m.err }

// ── collaborator stubs ──

var errMockStore = errors.New("store unavailable")

type stubUploader struct {
	result *upload.Result
	err    error
	calls  int
	last   upload.File
	ident  string
}

func (u *stubUploader) Upload(_ context.Context, f upload.File, identifier string) (*upload.Result, error) {
	u.calls++
	u.last = f
	u.ident = identifier
	if u.err != nil {
		return nil, u.err
	}
	return u.result, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

// blockingPublisher waits for the context like a writer facing an unreachable broker
type blockingPublisher struct {
	hadDeadline bool
}

func (p *blockingPublisher) Publish(ctx context.Context, _ events.Event) error {
	_, p.hadDeadline = ctx.Deadline()
	<-ctx.Done()
	return ctx.Err()
}

func (p *blockingPublisher) Close() error { return nil }

// sequenceIDs returns the given IDs in order
type sequenceIDs struct {
	ids []string
	err error
	n   int
}

func (g *sequenceIDs) Generate() (string, error) {
	if g.err != nil {
		return "", g.err
	}
	id := g.ids[g.n%len(g.ids)]
	g.n++
	return id, nil
}

type recordingPusher struct {
	to  string
	msg *linebot.FlexMessage
	err error
}

func (p *recordingPusher) PushFlex(_ context.Context, to string, msg *linebot.FlexMessage) error {
	p.to = to
	p.msg = msg
	return p.err
}

func newTestRepository() (*repository.Repository, *mockDeliveryRepo, *mockLocationRepo) {
	deliveries := newMockDeliveryRepo()
	locations := newMockLocationRepo()
	return &repository.Repository{Delivery: deliveries, Location: locations}, deliveries, locations
}
