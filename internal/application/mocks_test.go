package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/geonode/geonode/internal/domain"
	"github.com/geonode/geonode/internal/ports/input"
	"github.com/geonode/geonode/internal/ports/output"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// mockCatalog implements output.CatalogService in memory.
type mockCatalog struct {
	workspace string
	stores    map[string]*domain.Store
	resources map[string]*domain.Resource // by resource name
	layers    map[string]*domain.PublishedLayer
	styles    map[string]*domain.Style

	// nativeBBox is reported for newly created resources; latLon decides
	// whether the catalog detected the projection itself.
	nativeBBox domain.BoundingBox
	latLon     bool

	workspacesErr error
	createErr     error
	addDataErr    error
	saveLayerErr  error
	deleteErr     error // returned by DeleteStore
	noResource    bool

	created      []string
	deleted      []string
	savedStyles  []string
	dataStoreNew int
}

func newMockCatalog() *mockCatalog {
	return &mockCatalog{
		workspace:  "geonode",
		stores:     make(map[string]*domain.Store),
		resources:  make(map[string]*domain.Resource),
		layers:     make(map[string]*domain.PublishedLayer),
		styles:     make(map[string]*domain.Style),
		nativeBBox: domain.BoundingBox{MinX: -122.5, MaxX: -122.3, MinY: 37.7, MaxY: 37.8},
		latLon:     true,
	}
}

// seed publishes name as if an earlier upload had created it.
func (m *mockCatalog) seed(name string, rt domain.ResourceType) {
	store := &domain.Store{Name: name, Workspace: m.workspace, Type: rt.StoreType()}
	m.stores[name] = store
	m.resources[name] = &domain.Resource{Name: name, Title: "Title of " + name, Type: rt, Store: *store}
	m.layers[name] = &domain.PublishedLayer{Name: name, Workspace: m.workspace, ResourceType: rt, DefaultStyle: name}
}

func (m *mockCatalog) Workspaces(_ context.Context) ([]string, error) {
	if m.workspacesErr != nil {
		return nil, m.workspacesErr
	}
	return []string{m.workspace}, nil
}

func (m *mockCatalog) GetStore(_ context.Context, name string) (*domain.Store, error) {
	if s, ok := m.stores[name]; ok {
		return s, nil
	}
	return nil, domain.ErrStoreNotFound
}

func (m *mockCatalog) DeleteStore(_ context.Context, store *domain.Store, recurse bool) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	if _, ok := m.stores[store.Name]; !ok {
		return domain.ErrStoreNotFound
	}
	delete(m.stores, store.Name)
	if recurse {
		for name, r := range m.resources {
			if r.Store.Name == store.Name {
				delete(m.resources, name)
			}
		}
	}
	m.deleted = append(m.deleted, "store:"+store.Name)
	return nil
}

func (m *mockCatalog) StoreResources(_ context.Context, store *domain.Store) ([]domain.Resource, error) {
	var out []domain.Resource
	for _, r := range m.resources {
		if r.Store.Name == store.Name {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (m *mockCatalog) publish(store *domain.Store, name string, rt domain.ResourceType) {
	native := m.nativeBBox
	r := &domain.Resource{
		Name:       name,
		Title:      "Title of " + name,
		Abstract:   "Abstract of " + name,
		Type:       rt,
		Store:      *store,
		NativeBBox: &native,
	}
	if m.latLon {
		ll := native
		ll.CRS = domain.CRSWGS84
		r.LatLonBBox = &ll
		r.Projection = domain.CRSWGS84
	}
	if !m.noResource {
		m.resources[name] = r
	}
	m.layers[name] = &domain.PublishedLayer{Name: name, Workspace: m.workspace, ResourceType: rt}
	m.created = append(m.created, name)
}

func (m *mockCatalog) CreateFeatureStore(_ context.Context, name string, files []string, _ bool) error {
	if m.createErr != nil {
		return m.createErr
	}
	if len(files) < 3 {
		return fmt.Errorf("shapefile upload needs shp, dbf and shx, got %d files", len(files))
	}
	store := &domain.Store{Name: name, Workspace: m.workspace, Type: "dataStore"}
	m.stores[name] = store
	m.publish(store, name, domain.ResourceFeatureType)
	return nil
}

func (m *mockCatalog) CreateCoverageStore(_ context.Context, name string, _ string, _ bool) error {
	if m.createErr != nil {
		return m.createErr
	}
	store := &domain.Store{Name: name, Workspace: m.workspace, Type: "coverageStore"}
	m.stores[name] = store
	m.publish(store, name, domain.ResourceCoverage)
	return nil
}

func (m *mockCatalog) GetDataStore(_ context.Context, name string) (*domain.Store, error) {
	return m.GetStore(context.Background(), name)
}

func (m *mockCatalog) CreateDataStore(_ context.Context, store *domain.Store) error {
	s := *store
	s.Workspace = m.workspace
	m.stores[store.Name] = &s
	m.dataStoreNew++
	return nil
}

func (m *mockCatalog) AddDataToStore(_ context.Context, store *domain.Store, name string, _ []string, _ bool) error {
	if m.addDataErr != nil {
		return m.addDataErr
	}
	m.publish(store, name, domain.ResourceFeatureType)
	return nil
}

func (m *mockCatalog) GetResource(_ context.Context, name string, _ *domain.Store) (*domain.Resource, error) {
	if r, ok := m.resources[name]; ok {
		cp := *r
		return &cp, nil
	}
	return nil, domain.ErrResourceNotFound
}

func (m *mockCatalog) SaveResource(_ context.Context, resource *domain.Resource) error {
	cp := *resource
	m.resources[resource.Name] = &cp
	return nil
}

func (m *mockCatalog) DeleteResource(_ context.Context, resource *domain.Resource) error {
	if _, ok := m.resources[resource.Name]; !ok {
		return domain.ErrResourceNotFound
	}
	delete(m.resources, resource.Name)
	m.deleted = append(m.deleted, "resource:"+resource.Name)
	return nil
}

func (m *mockCatalog) GetLayer(_ context.Context, name string) (*domain.PublishedLayer, error) {
	if l, ok := m.layers[name]; ok {
		cp := *l
		return &cp, nil
	}
	return nil, fmt.Errorf("layer %s: %w", name, domain.ErrNotFound)
}

func (m *mockCatalog) SaveLayer(_ context.Context, layer *domain.PublishedLayer) error {
	if m.saveLayerErr != nil {
		return m.saveLayerErr
	}
	cp := *layer
	m.layers[layer.Name] = &cp
	return nil
}

func (m *mockCatalog) DeleteLayer(_ context.Context, layer *domain.PublishedLayer) error {
	delete(m.layers, layer.Name)
	m.deleted = append(m.deleted, "layer:"+layer.Name)
	return nil
}

func (m *mockCatalog) CreateStyle(_ context.Context, style *domain.Style) error {
	if _, ok := m.styles[style.Name]; ok {
		return domain.ErrStyleConflict
	}
	m.styles[style.Name] = style
	m.savedStyles = append(m.savedStyles, style.Name)
	return nil
}

func (m *mockCatalog) GetStyle(_ context.Context, name string) (*domain.Style, error) {
	if s, ok := m.styles[name]; ok {
		return s, nil
	}
	return nil, domain.ErrStyleNotFound
}

// mockMetadata implements output.MetadataCatalog.
type mockMetadata struct {
	records  map[string]*domain.MetadataRecord
	loginErr error
	deleted  []string
}

func newMockMetadata() *mockMetadata {
	return &mockMetadata{records: make(map[string]*domain.MetadataRecord)}
}

func (m *mockMetadata) Login(_ context.Context) error { return m.loginErr }

func (m *mockMetadata) Publish(_ context.Context, record *domain.MetadataRecord) error {
	m.records[record.UUID] = record
	return nil
}

func (m *mockMetadata) GetByUUID(_ context.Context, uuid string) (*domain.MetadataRecord, error) {
	if r, ok := m.records[uuid]; ok {
		return r, nil
	}
	return nil, domain.ErrRecordNotFound
}

func (m *mockMetadata) Delete(_ context.Context, uuid string) error {
	if _, ok := m.records[uuid]; !ok {
		return domain.ErrRecordNotFound
	}
	delete(m.records, uuid)
	m.deleted = append(m.deleted, uuid)
	return nil
}

// mockLayers implements output.LayerRepository.
type mockLayers struct {
	mu     sync.Mutex
	nextID int64
	layers map[int64]*domain.Layer
	// ghostCreates makes created layers invisible to name lookups, as if
	// the write never became visible.
	ghostCreates bool
	ghosts       map[int64]bool
}

func newMockLayers(names ...string) *mockLayers {
	m := &mockLayers{layers: make(map[int64]*domain.Layer), ghosts: make(map[int64]bool)}
	for _, n := range names {
		m.nextID++
		m.layers[m.nextID] = &domain.Layer{ID: m.nextID, Name: n, Workspace: "geonode", UUID: "uuid-" + n}
	}
	return m
}

func (m *mockLayers) find(name string) *domain.Layer {
	for id, l := range m.layers {
		if l.Name == name && !m.ghosts[id] {
			return l
		}
	}
	return nil
}

func (m *mockLayers) GetByName(_ context.Context, name string) (*domain.Layer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if l := m.find(name); l != nil {
		cp := *l
		return &cp, nil
	}
	return nil, domain.ErrLayerNotFound
}

func (m *mockLayers) GetByID(_ context.Context, id int64) (*domain.Layer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if l, ok := m.layers[id]; ok {
		cp := *l
		return &cp, nil
	}
	return nil, domain.ErrLayerNotFound
}

func (m *mockLayers) Exists(_ context.Context, name string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.find(name) != nil, nil
}

func (m *mockLayers) GetOrCreate(_ context.Context, name, workspace string, d domain.LayerDefaults) (*domain.Layer, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, l := range m.layers {
		if l.Name == name && l.Workspace == workspace {
			cp := *l
			return &cp, false, nil
		}
	}
	m.nextID++
	l := &domain.Layer{
		ID: m.nextID, Name: name, Workspace: workspace,
		Store: d.Store, StoreType: d.StoreType, Typename: d.Typename,
		Title: d.Title, UUID: d.UUID, Keywords: d.Keywords, Abstract: d.Abstract,
		OwnerID: d.OwnerID, BBox: d.BBox,
	}
	m.layers[l.ID] = l
	if m.ghostCreates {
		m.ghosts[l.ID] = true
	}
	cp := *l
	return &cp, true, nil
}

func (m *mockLayers) Update(_ context.Context, layer *domain.Layer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.layers[layer.ID]; !ok {
		return domain.ErrLayerNotFound
	}
	cp := *layer
	m.layers[layer.ID] = &cp
	return nil
}

func (m *mockLayers) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.layers[id]; !ok {
		return domain.ErrLayerNotFound
	}
	delete(m.layers, id)
	return nil
}

func (m *mockLayers) List(_ context.Context) ([]domain.Layer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Layer, 0, len(m.layers))
	for _, l := range m.layers {
		out = append(out, *l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// mockContacts implements output.ContactRepository.
type mockContacts struct {
	nextID   int64
	contacts map[string]*domain.Contact // by username/role
}

func newMockContacts() *mockContacts {
	return &mockContacts{contacts: make(map[string]*domain.Contact)}
}

func (m *mockContacts) GetOrCreate(_ context.Context, user domain.User, role domain.ContactRole) (*domain.Contact, error) {
	key := user.Username + "/" + string(role)
	if c, ok := m.contacts[key]; ok {
		return c, nil
	}
	m.nextID++
	c := &domain.Contact{ID: m.nextID, UserID: user.ID, Name: user.Username, Role: role}
	m.contacts[key] = c
	return c, nil
}

// mockUsers implements output.UserRepository.
type mockUsers struct {
	users []domain.User
}

func (m *mockUsers) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	for i := range m.users {
		if m.users[i].Username == username {
			u := m.users[i]
			return &u, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (m *mockUsers) GetByID(_ context.Context, id int64) (*domain.User, error) {
	for i := range m.users {
		if m.users[i].ID == id {
			u := m.users[i]
			return &u, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (m *mockUsers) Superusers(_ context.Context) ([]domain.User, error) {
	var out []domain.User
	for _, u := range m.users {
		if u.IsSuperuser && u.IsActive {
			out = append(out, u)
		}
	}
	return out, nil
}

func (m *mockUsers) Create(_ context.Context, user *domain.User) error {
	if _, err := m.GetByUsername(context.Background(), user.Username); err == nil {
		return fmt.Errorf("user %s: %w", user.Username, domain.ErrConflict)
	}
	user.ID = int64(len(m.users) + 1)
	m.users = append(m.users, *user)
	return nil
}

// mockPermissions implements output.PermissionRepository.
type mockPermissions struct {
	specs map[int64]domain.PermissionSpec
}

func newMockPermissions() *mockPermissions {
	return &mockPermissions{specs: make(map[int64]domain.PermissionSpec)}
}

func (m *mockPermissions) Get(_ context.Context, layerID int64) (*domain.PermissionSpec, error) {
	if s, ok := m.specs[layerID]; ok {
		return &s, nil
	}
	return nil, domain.ErrNotFound
}

func (m *mockPermissions) Set(_ context.Context, layerID int64, spec domain.PermissionSpec) error {
	m.specs[layerID] = spec
	return nil
}

// mockStyles implements output.StyleGenerator.
type mockStyles struct {
	geometries []string
}

func (m *mockStyles) Generate(name, geometryType string) ([]byte, error) {
	m.geometries = append(m.geometries, geometryType)
	return []byte("<StyledLayerDescriptor name=\"" + name + "\"/>"), nil
}

// mockSniffer implements output.GeometrySniffer.
type mockSniffer struct {
	geometry string
	err      error
}

func (m *mockSniffer) GeometryType(_ string) (string, error) {
	return m.geometry, m.err
}

// mockFeatureDB implements output.FeatureDatabase.
type mockFeatureDB struct {
	dropped []string
}

func (m *mockFeatureDB) DropTable(_ context.Context, name string) error {
	m.dropped = append(m.dropped, name)
	return nil
}

// failingVerifier implements LayerVerifier.
type failingVerifier struct{ err error }

func (v failingVerifier) Verify(context.Context, *domain.Layer) error { return v.err }

// mockStorage implements output.ObjectStorage over a map of key to content.
type mockStorage struct {
	objects     []output.StorageObject
	content     map[string]string
	downloadErr error
	listErr     error
	downloads   []string
}

func (m *mockStorage) List(_ context.Context) ([]output.StorageObject, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.objects, nil
}

func (m *mockStorage) Download(_ context.Context, key, dest string) error {
	if m.downloadErr != nil {
		return m.downloadErr
	}
	m.downloads = append(m.downloads, key)
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return err
	}
	return os.WriteFile(dest, []byte(m.content[key]), 0644)
}

// mockUploader implements input.Uploader for the ingest service.
type mockUploader struct {
	mu       sync.Mutex
	uploaded []string
	seen     [][]string // directory listings at upload time
	err      error
}

func (m *mockUploader) Save(_ context.Context, req domain.SaveRequest) (*domain.Layer, error) {
	return &domain.Layer{Name: req.Layer.Name}, nil
}

func (m *mockUploader) FileUpload(_ context.Context, path string, _ input.UploadOptions) (*domain.Layer, error) {
	return &domain.Layer{Name: filepath.Base(path)}, nil
}

func (m *mockUploader) Upload(_ context.Context, path string, _ input.UploadOptions) (domain.UploadReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	m.uploaded = append(m.uploaded, path)

	var names []string
	_ = filepath.Walk(path, func(p string, info os.FileInfo, err error) error {
		if err == nil && !info.IsDir() {
			names = append(names, filepath.Base(p))
		}
		return nil
	})
	m.seen = append(m.seen, names)

	var report domain.UploadReport
	for _, n := range names {
		if strings.HasSuffix(n, ".shp") || strings.HasSuffix(n, ".tif") {
			report = append(report, domain.UploadResult{File: filepath.Join(path, n), Name: strings.TrimSuffix(n, filepath.Ext(n))})
		}
	}
	return report, nil
}

func (m *mockUploader) CheckServices(_ context.Context) error { return nil }

var errBoom = errors.New("boom")
