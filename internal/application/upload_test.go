package application

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/geonode/geonode/internal/domain"
	"github.com/geonode/geonode/internal/ports/input"
)

var (
	admin = domain.User{ID: 1, Username: "admin", IsSuperuser: true, IsActive: true}
	bobby = domain.User{ID: 2, Username: "bobby", IsActive: true}
)

type fixture struct {
	catalog  *mockCatalog
	metadata *mockMetadata
	layers   *mockLayers
	contacts *mockContacts
	users    *mockUsers
	perms    *mockPermissions
	styles   *mockStyles
	db       *mockFeatureDB
	deps     UploadDependencies
	svc      *UploadService
}

func newFixture(t *testing.T, datastore DataStoreOptions, existing ...string) *fixture {
	t.Helper()
	logger := testLogger()
	f := &fixture{
		catalog:  newMockCatalog(),
		metadata: newMockMetadata(),
		layers:   newMockLayers(existing...),
		contacts: newMockContacts(),
		users:    &mockUsers{users: []domain.User{admin, bobby}},
		perms:    newMockPermissions(),
		styles:   &mockStyles{},
		db:       &mockFeatureDB{},
	}
	f.deps = UploadDependencies{
		Catalog:  f.catalog,
		Metadata: f.metadata,
		Layers:   f.layers,
		Contacts: f.contacts,
		Names:    NewNameResolver(f.layers, logger),
		Stores:   NewStoreCreator(f.catalog, f.db, datastore, logger),
		Access:   NewLayerService(f.layers, f.perms, f.users, logger),
		Users:    NewUsersService(f.users, logger),
		Styles:   f.styles,
		Sniffer:  &mockSniffer{geometry: domain.GeometryLine},
	}
	f.rebuild()
	return f
}

func (f *fixture) rebuild() {
	f.svc = NewUploadService(f.deps, UploadOptions{
		CatalogURL:  "http://localhost:8080/geoserver",
		MetadataURL: "http://localhost:8080/geonetwork",
	}, testLogger())
}

// writeFiles creates empty files named names inside dir and returns dir.
func writeFiles(t *testing.T, dir string, names ...string) string {
	t.Helper()
	for _, n := range names {
		p := filepath.Join(dir, n)
		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte("data"), 0644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func wantKind(t *testing.T, err error, kind domain.ErrorKind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", kind)
	}
	if !errors.Is(err, &domain.Error{Kind: kind}) {
		t.Fatalf("error kind = %s, want %s (err: %v)", domain.KindOf(err), kind, err)
	}
}

func TestFileUploadShapefile(t *testing.T) {
	f := newFixture(t, DataStoreOptions{})
	dir := writeFiles(t, t.TempDir(), "data.shp", "data.dbf", "data.shx")

	layer, err := f.svc.FileUpload(context.Background(), filepath.Join(dir, "data.shp"), input.UploadOptions{
		Keywords: []string{"roads", "transport"},
	})
	if err != nil {
		t.Fatalf("FileUpload() error = %v", err)
	}

	if layer.Name != "data" {
		t.Errorf("layer.Name = %q, want %q", layer.Name, "data")
	}
	if layer.Typename != "geonode:data" {
		t.Errorf("layer.Typename = %q", layer.Typename)
	}
	if layer.Title != "Title of data" {
		t.Errorf("layer.Title = %q, want the catalog title", layer.Title)
	}
	if layer.Keywords != "roads transport" {
		t.Errorf("layer.Keywords = %q", layer.Keywords)
	}
	if layer.OwnerID != admin.ID {
		t.Errorf("layer.OwnerID = %d, want default superuser", layer.OwnerID)
	}
	if layer.UUID == "" {
		t.Error("layer.UUID should be set")
	}

	spec, ok := f.perms.specs[layer.ID]
	if !ok {
		t.Fatal("default permissions were not applied")
	}
	if spec.Anonymous != domain.LevelRead || spec.LevelFor(admin) != domain.LevelAdmin {
		t.Errorf("permissions = %+v", spec)
	}

	if len(f.contacts.contacts) != 2 {
		t.Errorf("contacts = %d, want point of contact and author", len(f.contacts.contacts))
	}
	for _, c := range f.contacts.contacts {
		if c.Name != "admin" {
			t.Errorf("contact name = %q, want username", c.Name)
		}
	}
	if layer.PocID == nil || layer.MetadataAuthorID == nil {
		t.Error("contacts not linked to the layer")
	}

	if _, ok := f.metadata.records[layer.UUID]; !ok {
		t.Error("metadata record was not published")
	}
	if got := f.catalog.layers["data"].DefaultStyle; got != "data" {
		t.Errorf("default style = %q, want %q", got, "data")
	}
	if len(f.styles.geometries) != 1 || f.styles.geometries[0] != domain.GeometryLine {
		t.Errorf("style generated for %v, want sniffed geometry", f.styles.geometries)
	}
}

func TestSaveNameCollision(t *testing.T) {
	tests := []struct {
		name     string
		existing []string
		want     string
	}{
		{"unique name unchanged", nil, "data"},
		{"first suffix", []string{"data"}, "data_1"},
		{"second suffix", []string{"data", "data_1"}, "data_2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, DataStoreOptions{}, tt.existing...)
			dir := writeFiles(t, t.TempDir(), "data.tif")

			layer, err := f.svc.Save(context.Background(), domain.SaveRequest{
				Layer:    domain.ProposedName("data"),
				BaseFile: filepath.Join(dir, "data.tif"),
				User:     admin,
			})
			if err != nil {
				t.Fatalf("Save() error = %v", err)
			}
			if layer.Name != tt.want {
				t.Errorf("layer.Name = %q, want %q", layer.Name, tt.want)
			}
		})
	}
}

func TestSaveMissingHelperFile(t *testing.T) {
	f := newFixture(t, DataStoreOptions{})
	dir := writeFiles(t, t.TempDir(), "data.shp", "data.shx")

	_, err := f.svc.Save(context.Background(), domain.SaveRequest{
		Layer:    domain.ProposedName("data"),
		BaseFile: filepath.Join(dir, "data.shp"),
		User:     admin,
	})
	wantKind(t, err, domain.KindMissingHelperFile)
	if !strings.Contains(err.Error(), "data.dbf") {
		t.Errorf("error should name the expected file: %v", err)
	}
	if len(f.catalog.created) != 0 {
		t.Error("catalog should not be touched before the file set is valid")
	}
}

func TestSaveMissingFile(t *testing.T) {
	f := newFixture(t, DataStoreOptions{})
	_, err := f.svc.Save(context.Background(), domain.SaveRequest{
		Layer:    domain.ProposedName("data"),
		BaseFile: filepath.Join(t.TempDir(), "nope.shp"),
		User:     admin,
	})
	wantKind(t, err, domain.KindInvalidInput)
}

func TestSaveRejectsAnonymous(t *testing.T) {
	f := newFixture(t, DataStoreOptions{})
	dir := writeFiles(t, t.TempDir(), "data.tif")
	_, err := f.svc.Save(context.Background(), domain.SaveRequest{
		Layer:    domain.ProposedName("data"),
		BaseFile: filepath.Join(dir, "data.tif"),
		User:     domain.Anonymous,
	})
	wantKind(t, err, domain.KindPermissionDenied)
}

func TestSaveProjection(t *testing.T) {
	t.Run("geographic bounds assume EPSG:4326", func(t *testing.T) {
		f := newFixture(t, DataStoreOptions{})
		f.catalog.latLon = false
		dir := writeFiles(t, t.TempDir(), "dem.tif")

		layer, err := f.svc.Save(context.Background(), domain.SaveRequest{
			Layer:    domain.ProposedName("dem"),
			BaseFile: filepath.Join(dir, "dem.tif"),
			User:     admin,
		})
		if err != nil {
			t.Fatalf("Save() error = %v", err)
		}
		r := f.catalog.resources["dem"]
		if r.Projection != domain.CRSWGS84 || r.LatLonBBox == nil {
			t.Errorf("resource projection = %q, latlon = %v", r.Projection, r.LatLonBBox)
		}
		if layer.BBox.MinX != -122.5 {
			t.Errorf("layer bbox = %v", layer.BBox)
		}
	})

	t.Run("projected bounds roll back", func(t *testing.T) {
		f := newFixture(t, DataStoreOptions{})
		f.catalog.latLon = false
		f.catalog.nativeBBox = domain.BoundingBox{MinX: 500000, MaxX: 510000, MinY: 4100000, MaxY: 4110000}
		dir := writeFiles(t, t.TempDir(), "dem.tif")

		_, err := f.svc.Save(context.Background(), domain.SaveRequest{
			Layer:    domain.ProposedName("dem"),
			BaseFile: filepath.Join(dir, "dem.tif"),
			User:     admin,
		})
		wantKind(t, err, domain.KindProjectionUnknown)

		if len(f.catalog.stores) != 0 || len(f.catalog.resources) != 0 || len(f.catalog.layers) != 0 {
			t.Errorf("catalog not cleaned up: stores=%d resources=%d layers=%d",
				len(f.catalog.stores), len(f.catalog.resources), len(f.catalog.layers))
		}
		if exists, _ := f.layers.Exists(context.Background(), "dem"); exists {
			t.Error("no layer record should be created")
		}
	})
}

func TestSaveExistingStore(t *testing.T) {
	t.Run("type mismatch", func(t *testing.T) {
		f := newFixture(t, DataStoreOptions{})
		store := &domain.Store{Name: "dem", Workspace: "geonode", Type: "coverageStore"}
		f.catalog.stores["dem"] = store
		f.catalog.resources["dem"] = &domain.Resource{Name: "dem", Type: domain.ResourceCoverage, Store: *store}
		dir := writeFiles(t, t.TempDir(), "dem.shp", "dem.dbf", "dem.shx")

		_, err := f.svc.Save(context.Background(), domain.SaveRequest{
			Layer:     domain.ProposedName("dem"),
			BaseFile:  filepath.Join(dir, "dem.shp"),
			User:      admin,
			Overwrite: true,
		})
		wantKind(t, err, domain.KindTypeMismatch)
	})

	t.Run("empty store without overwrite", func(t *testing.T) {
		f := newFixture(t, DataStoreOptions{})
		f.catalog.stores["dem"] = &domain.Store{Name: "dem", Workspace: "geonode"}
		dir := writeFiles(t, t.TempDir(), "dem.tif")

		// The name is unique locally, so the resolver keeps it.
		_, err := f.svc.Save(context.Background(), domain.SaveRequest{
			Layer:    domain.ProposedName("dem"),
			BaseFile: filepath.Join(dir, "dem.tif"),
			User:     admin,
		})
		wantKind(t, err, domain.KindNameConflict)
	})

	t.Run("empty store with overwrite is replaced", func(t *testing.T) {
		f := newFixture(t, DataStoreOptions{})
		f.catalog.stores["dem"] = &domain.Store{Name: "dem", Workspace: "geonode"}
		dir := writeFiles(t, t.TempDir(), "dem.tif")

		if _, err := f.svc.Save(context.Background(), domain.SaveRequest{
			Layer:     domain.ProposedName("dem"),
			BaseFile:  filepath.Join(dir, "dem.tif"),
			User:      admin,
			Overwrite: true,
		}); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
		if len(f.catalog.deleted) == 0 || f.catalog.deleted[0] != "store:dem" {
			t.Errorf("deleted = %v, want the empty store removed first", f.catalog.deleted)
		}
	})
}

func TestSaveStyle(t *testing.T) {
	t.Run("supplied style is used verbatim", func(t *testing.T) {
		f := newFixture(t, DataStoreOptions{})
		dir := writeFiles(t, t.TempDir(), "dem.tif")
		if err := os.WriteFile(filepath.Join(dir, "dem.SLD"), []byte("<sld/>"), 0644); err != nil {
			t.Fatal(err)
		}

		if _, err := f.svc.Save(context.Background(), domain.SaveRequest{
			Layer: domain.ProposedName("dem"), BaseFile: filepath.Join(dir, "dem.tif"), User: admin,
		}); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
		if string(f.catalog.styles["dem"].Body) != "<sld/>" {
			t.Errorf("style body = %q", f.catalog.styles["dem"].Body)
		}
		if len(f.styles.geometries) != 0 {
			t.Error("no style should be generated when one is supplied")
		}
	})

	t.Run("existing style is reused", func(t *testing.T) {
		f := newFixture(t, DataStoreOptions{})
		f.catalog.styles["dem"] = &domain.Style{Name: "dem"}
		dir := writeFiles(t, t.TempDir(), "dem.tif")

		if _, err := f.svc.Save(context.Background(), domain.SaveRequest{
			Layer: domain.ProposedName("dem"), BaseFile: filepath.Join(dir, "dem.tif"), User: admin,
		}); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
		if f.catalog.layers["dem"].DefaultStyle != "dem" {
			t.Error("existing style should become the default style")
		}
		if len(f.styles.geometries) != 1 || f.styles.geometries[0] != domain.GeometryRaster {
			t.Errorf("geometries = %v, want raster", f.styles.geometries)
		}
	})
}

func TestSaveExplicitPermissions(t *testing.T) {
	f := newFixture(t, DataStoreOptions{})
	dir := writeFiles(t, t.TempDir(), "dem.tif")
	spec := domain.PermissionSpec{
		Anonymous:     domain.LevelNone,
		Authenticated: domain.LevelReadWrite,
		Users:         []domain.UserPermission{{Username: "bobby", Level: domain.LevelAdmin}},
	}

	layer, err := f.svc.Save(context.Background(), domain.SaveRequest{
		Layer: domain.ProposedName("dem"), BaseFile: filepath.Join(dir, "dem.tif"), User: admin,
		Permissions: &spec,
	})
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	got := f.perms.specs[layer.ID]
	if got.Anonymous != domain.LevelNone || got.LevelFor(bobby) != domain.LevelAdmin {
		t.Errorf("permissions = %+v", got)
	}
}

func TestSaveDeepVerificationFailure(t *testing.T) {
	f := newFixture(t, DataStoreOptions{})
	f.deps.Verifier = failingVerifier{err: errBoom}
	f.rebuild()
	dir := writeFiles(t, t.TempDir(), "dem.tif")

	_, err := f.svc.Save(context.Background(), domain.SaveRequest{
		Layer: domain.ProposedName("dem"), BaseFile: filepath.Join(dir, "dem.tif"), User: admin,
	})
	wantKind(t, err, domain.KindVerificationFailed)
	if !errors.Is(err, errBoom) {
		t.Error("verification error should wrap the verifier's error")
	}

	if all, _ := f.layers.List(context.Background()); len(all) != 0 {
		t.Errorf("layer records = %d, want 0", len(all))
	}
	if len(f.metadata.records) != 0 {
		t.Error("metadata record should be deleted")
	}
	if len(f.catalog.stores) != 0 {
		t.Error("catalog store should be deleted")
	}
}

func TestSaveRecordMissingAfterRegistration(t *testing.T) {
	f := newFixture(t, DataStoreOptions{})
	f.layers.ghostCreates = true
	dir := writeFiles(t, t.TempDir(), "dem.tif")

	_, err := f.svc.Save(context.Background(), domain.SaveRequest{
		Layer: domain.ProposedName("dem"), BaseFile: filepath.Join(dir, "dem.tif"), User: admin,
	})
	wantKind(t, err, domain.KindVerificationFailed)

	if len(f.catalog.stores) != 0 || len(f.catalog.layers) != 0 {
		t.Error("cleanup should remove the catalog store and layer")
	}
	if len(f.metadata.deleted) != 1 {
		t.Errorf("metadata deletions = %v, want the dangling record", f.metadata.deleted)
	}
}

func TestSaveDatabaseStore(t *testing.T) {
	opts := DataStoreOptions{Enabled: true, Name: "datastore", Host: "db", Port: 5432, Database: "geonode", DBType: "postgis"}

	t.Run("creates the data store once", func(t *testing.T) {
		f := newFixture(t, opts)
		dir := writeFiles(t, t.TempDir(), "a.shp", "a.dbf", "a.shx", "b.shp", "b.dbf", "b.shx")

		for _, name := range []string{"a", "b"} {
			layer, err := f.svc.Save(context.Background(), domain.SaveRequest{
				Layer: domain.ProposedName(name), BaseFile: filepath.Join(dir, name+".shp"), User: admin,
			})
			if err != nil {
				t.Fatalf("Save(%s) error = %v", name, err)
			}
			if layer.Store != "datastore" {
				t.Errorf("layer.Store = %q, want shared data store", layer.Store)
			}
		}
		if f.catalog.dataStoreNew != 1 {
			t.Errorf("data store created %d times, want 1", f.catalog.dataStoreNew)
		}
		if got := f.catalog.stores["datastore"].ConnectionParameters["port"]; got != "5432" {
			t.Errorf("connection port = %q", got)
		}
	})

	t.Run("failed import drops the table", func(t *testing.T) {
		f := newFixture(t, opts)
		f.catalog.addDataErr = errBoom
		dir := writeFiles(t, t.TempDir(), "a.shp", "a.dbf", "a.shx")

		_, err := f.svc.Save(context.Background(), domain.SaveRequest{
			Layer: domain.ProposedName("a"), BaseFile: filepath.Join(dir, "a.shp"), User: admin,
		})
		wantKind(t, err, domain.KindUploadFailed)
		if len(f.db.dropped) != 1 || f.db.dropped[0] != "a" {
			t.Errorf("dropped tables = %v", f.db.dropped)
		}
	})

	t.Run("conflict is reported distinctly", func(t *testing.T) {
		f := newFixture(t, opts)
		f.catalog.addDataErr = &domain.CatalogError{Operation: "add_data", Name: "a", StatusCode: 409, Err: domain.ErrStoreConflict}
		dir := writeFiles(t, t.TempDir(), "a.shp", "a.dbf", "a.shx")

		_, err := f.svc.Save(context.Background(), domain.SaveRequest{
			Layer: domain.ProposedName("a"), BaseFile: filepath.Join(dir, "a.shp"), User: admin,
		})
		wantKind(t, err, domain.KindCatalogConflict)
	})
}

func TestSaveResourceMissing(t *testing.T) {
	f := newFixture(t, DataStoreOptions{})
	f.catalog.noResource = true
	dir := writeFiles(t, t.TempDir(), "dem.tif")

	_, err := f.svc.Save(context.Background(), domain.SaveRequest{
		Layer: domain.ProposedName("dem"), BaseFile: filepath.Join(dir, "dem.tif"), User: admin,
	})
	wantKind(t, err, domain.KindResourceMissing)
	if len(f.catalog.stores) != 0 || len(f.catalog.layers) != 0 {
		t.Error("store without resource should be discarded")
	}
}

func TestDiscardStoreLogsFailures(t *testing.T) {
	catalog := newMockCatalog()
	catalog.seed("dem", domain.ResourceCoverage)
	catalog.deleteErr = errors.New("permission denied by catalog")

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	discardStore(context.Background(), catalog, "dem", logger)

	if !strings.Contains(buf.String(), "failed to discard incomplete store") ||
		!strings.Contains(buf.String(), "permission denied by catalog") {
		t.Errorf("log = %q, want the delete failure reported", buf.String())
	}
	if _, ok := catalog.layers["dem"]; ok {
		t.Error("layer should still be deleted when the store delete fails")
	}
}

func TestUploadDirectoryReport(t *testing.T) {
	f := newFixture(t, DataStoreOptions{})
	dir := writeFiles(t, t.TempDir(),
		"roads.shp", "roads.dbf", "roads.shx",
		"nested/dem.tif",
		"broken.shp", "broken.shx",
		"notes.txt",
	)

	report, err := f.svc.Upload(context.Background(), dir, input.UploadOptions{Overwrite: true})
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}

	if len(report) != 3 {
		t.Fatalf("report has %d entries, want 3: %+v", len(report), report)
	}
	if report.Failures() != 1 {
		t.Errorf("failures = %d, want 1", report.Failures())
	}

	byFile := make(map[string]domain.UploadResult)
	for _, r := range report {
		byFile[filepath.Base(r.File)] = r
	}
	if r := byFile["broken.shp"]; !r.Failed() || r.Kind != domain.KindMissingHelperFile {
		t.Errorf("broken.shp result = %+v", r)
	}
	if r := byFile["roads.shp"]; r.Name != "roads" {
		t.Errorf("roads.shp result = %+v", r)
	}
	if r := byFile["dem.tif"]; r.Name != "dem" {
		t.Errorf("dem.tif result = %+v", r)
	}
}

func writeZip(t *testing.T, path string, members ...string) {
	t.Helper()
	out, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	zw := zip.NewWriter(out)
	for _, name := range members {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write([]byte("data")); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := out.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestUploadZipArchive(t *testing.T) {
	f := newFixture(t, DataStoreOptions{})
	dir := t.TempDir()
	writeZip(t, filepath.Join(dir, "bundle.zip"), "parcels.shp", "parcels.dbf", "parcels.shx")
	writeZip(t, filepath.Join(dir, "rasters.zip"), "rivers.tif", "lakes.tif", "broken.shp")
	writeFiles(t, dir, "dem.tif")

	report, err := f.svc.Upload(context.Background(), dir, input.UploadOptions{})
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	// One entry per file of the directory, archives included.
	if len(report) != 3 {
		t.Fatalf("report = %+v, want three entries", report)
	}

	byFile := make(map[string]domain.UploadResult)
	for _, r := range report {
		byFile[filepath.Base(r.File)] = r
	}
	if r := byFile["bundle.zip"]; r.Failed() || r.Name != "parcels" {
		t.Errorf("bundle.zip result = %+v", r)
	}
	r := byFile["rasters.zip"]
	if r.Name != "lakes,rivers" {
		t.Errorf("rasters.zip names = %q, want both rasters", r.Name)
	}
	if !r.Failed() || !strings.Contains(r.Errors, "broken.shp") || r.Kind != domain.KindMissingHelperFile {
		t.Errorf("rasters.zip should report the broken member, got %+v", r)
	}
	if r := byFile["dem.tif"]; r.Name != "dem" {
		t.Errorf("dem.tif result = %+v", r)
	}
}

func TestUploadSingleFileAndBadPath(t *testing.T) {
	f := newFixture(t, DataStoreOptions{})
	dir := writeFiles(t, t.TempDir(), "dem.tif", "readme.txt")

	report, err := f.svc.Upload(context.Background(), filepath.Join(dir, "dem.tif"), input.UploadOptions{})
	if err != nil {
		t.Fatalf("Upload(file) error = %v", err)
	}
	if len(report) != 1 || report[0].Name != "dem" {
		t.Errorf("report = %+v", report)
	}

	// A single file propagates its error.
	_, err = f.svc.Upload(context.Background(), filepath.Join(dir, "readme.txt"), input.UploadOptions{})
	wantKind(t, err, domain.KindUnsupportedFormat)

	_, err = f.svc.Upload(context.Background(), filepath.Join(dir, "missing"), input.UploadOptions{})
	wantKind(t, err, domain.KindInvalidInput)
}

func TestFileUploadOverwritesExistingLayer(t *testing.T) {
	f := newFixture(t, DataStoreOptions{}, "dem")
	dir := writeFiles(t, t.TempDir(), "dem.tif")

	layer, err := f.svc.FileUpload(context.Background(), filepath.Join(dir, "dem.tif"), input.UploadOptions{Overwrite: true})
	if err != nil {
		t.Fatalf("FileUpload() error = %v", err)
	}
	if layer.Name != "dem" || layer.ID != 1 {
		t.Errorf("layer = %d %q, want the existing record", layer.ID, layer.Name)
	}
	if layer.UUID != "uuid-dem" {
		t.Errorf("existing layer UUID changed to %q", layer.UUID)
	}
}

func TestSaveFailureAfterOverwriteKeepsExistingLayer(t *testing.T) {
	f := newFixture(t, DataStoreOptions{}, "dem")
	f.catalog.seed("dem", domain.ResourceCoverage)
	f.catalog.saveLayerErr = errors.New("catalog unavailable")
	dir := writeFiles(t, t.TempDir(), "dem.tif")

	_, err := f.svc.FileUpload(context.Background(), filepath.Join(dir, "dem.tif"), input.UploadOptions{Overwrite: true})
	if err == nil {
		t.Fatal("FileUpload() should fail when the default style cannot be set")
	}

	if len(f.catalog.deleted) != 0 {
		t.Errorf("deleted = %v, want the overwritten layer left in place", f.catalog.deleted)
	}
	if _, ok := f.catalog.stores["dem"]; !ok {
		t.Error("existing store was removed")
	}
	if _, ok := f.catalog.resources["dem"]; !ok {
		t.Error("existing resource was removed")
	}
	if _, ok := f.catalog.layers["dem"]; !ok {
		t.Error("existing published layer was removed")
	}
	if exists, _ := f.layers.Exists(context.Background(), "dem"); !exists {
		t.Error("existing layer record was removed")
	}
}

func TestSaveFailureRemovesNewLayer(t *testing.T) {
	f := newFixture(t, DataStoreOptions{})
	f.catalog.saveLayerErr = errors.New("catalog unavailable")
	dir := writeFiles(t, t.TempDir(), "dem.tif")

	if _, err := f.svc.FileUpload(context.Background(), filepath.Join(dir, "dem.tif"), input.UploadOptions{}); err == nil {
		t.Fatal("FileUpload() should fail when the default style cannot be set")
	}
	if len(f.catalog.stores) != 0 || len(f.catalog.resources) != 0 || len(f.catalog.layers) != 0 {
		t.Errorf("catalog not cleaned up: stores=%d resources=%d layers=%d",
			len(f.catalog.stores), len(f.catalog.resources), len(f.catalog.layers))
	}
}

func TestUploadDirectoryTitlesFromCatalog(t *testing.T) {
	f := newFixture(t, DataStoreOptions{})
	dir := writeFiles(t, t.TempDir(), "city_roads.shp", "city_roads.dbf", "city_roads.shx")

	report, err := f.svc.Upload(context.Background(), dir, input.UploadOptions{Title: "Ignored For Batches"})
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if len(report) != 1 || report[0].Name != "city_roads" {
		t.Fatalf("report = %+v", report)
	}
	layer, err := f.layers.GetByName(context.Background(), "city_roads")
	if err != nil {
		t.Fatal(err)
	}
	if layer.Title != "Title of city_roads" {
		t.Errorf("layer.Title = %q, want the catalog title", layer.Title)
	}
}

func TestFileUploadExplicitTitle(t *testing.T) {
	f := newFixture(t, DataStoreOptions{})
	dir := writeFiles(t, t.TempDir(), "dem.tif")

	layer, err := f.svc.FileUpload(context.Background(), filepath.Join(dir, "dem.tif"), input.UploadOptions{Title: "Elevation Model"})
	if err != nil {
		t.Fatalf("FileUpload() error = %v", err)
	}
	if layer.Name != "elevation_model" || layer.Title != "Elevation Model" {
		t.Errorf("layer = %q titled %q", layer.Name, layer.Title)
	}
}

func TestCheckServices(t *testing.T) {
	tests := []struct {
		name     string
		catalog  error
		metadata error
		want     string
	}{
		{"both up", nil, nil, ""},
		{"catalog down", errBoom, nil, "catalog service"},
		{"metadata down", nil, errBoom, "metadata catalog"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, DataStoreOptions{})
			f.catalog.workspacesErr = tt.catalog
			f.metadata.loginErr = tt.metadata

			err := f.svc.CheckServices(context.Background())
			if tt.want == "" {
				if err != nil {
					t.Fatalf("CheckServices() error = %v", err)
				}
				return
			}
			wantKind(t, err, domain.KindServiceUnavailable)
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q should mention %q", err, tt.want)
			}
		})
	}
}

func TestCleanupRefusesExistingLayer(t *testing.T) {
	f := newFixture(t, DataStoreOptions{}, "dem")
	err := f.svc.Cleanup(context.Background(), "dem", "uuid-dem")
	wantKind(t, err, domain.KindNameConflict)
}
