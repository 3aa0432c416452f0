package application

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/geonode/geonode/internal/domain"
)

// newLayerFixture records eight public layers owned by admin.
func newLayerFixture(t *testing.T) (*LayerService, *mockPermissions) {
	t.Helper()
	var names []string
	for i := 1; i <= 8; i++ {
		names = append(names, fmt.Sprintf("layer_%d", i))
	}
	layers := newMockLayers(names...)
	perms := newMockPermissions()
	svc := NewLayerService(layers, perms, &mockUsers{users: []domain.User{admin, bobby}}, testLogger())

	all, _ := layers.List(context.Background())
	for i := range all {
		all[i].OwnerID = admin.ID
		if err := svc.ApplyDefaultPermissions(context.Background(), &all[i]); err != nil {
			t.Fatal(err)
		}
	}
	return svc, perms
}

func TestLayerServiceListFiltersByPermission(t *testing.T) {
	ctx := context.Background()

	t.Run("all public", func(t *testing.T) {
		svc, _ := newLayerFixture(t)
		for _, u := range []domain.User{domain.Anonymous, bobby, admin} {
			views, err := svc.List(ctx, u)
			if err != nil {
				t.Fatal(err)
			}
			if len(views) != 8 {
				t.Errorf("%q sees %d layers, want 8", u.Username, len(views))
			}
		}
	})

	t.Run("one layer for authenticated users only", func(t *testing.T) {
		svc, _ := newLayerFixture(t)
		spec := domain.PermissionSpec{Anonymous: domain.LevelNone, Authenticated: domain.LevelReadWrite}
		if err := svc.SetPermissions(ctx, admin, 1, spec); err != nil {
			t.Fatal(err)
		}

		anon, _ := svc.List(ctx, domain.Anonymous)
		auth, _ := svc.List(ctx, bobby)
		if len(anon) != 7 {
			t.Errorf("anonymous sees %d layers, want 7", len(anon))
		}
		if len(auth) != 8 {
			t.Errorf("authenticated sees %d layers, want 8", len(auth))
		}
	})

	t.Run("one private layer", func(t *testing.T) {
		svc, _ := newLayerFixture(t)
		spec := domain.PermissionSpec{
			Anonymous:     domain.LevelNone,
			Authenticated: domain.LevelNone,
			Users:         []domain.UserPermission{{Username: "admin", Level: domain.LevelAdmin}},
		}
		if err := svc.SetPermissions(ctx, admin, 1, spec); err != nil {
			t.Fatal(err)
		}

		forBobby, _ := svc.List(ctx, bobby)
		forAdmin, _ := svc.List(ctx, admin)
		if len(forBobby) != 7 {
			t.Errorf("bobby sees %d layers, want 7", len(forBobby))
		}
		if len(forAdmin) != 8 {
			t.Errorf("admin sees %d layers, want 8", len(forAdmin))
		}
	})
}

func TestLayerServiceGet(t *testing.T) {
	ctx := context.Background()
	svc, perms := newLayerFixture(t)
	perms.specs[2] = domain.PermissionSpec{Anonymous: domain.LevelNone, Authenticated: domain.LevelRead}

	if _, err := svc.Get(ctx, domain.Anonymous, 1); err != nil {
		t.Errorf("public layer error = %v", err)
	}
	if _, err := svc.Get(ctx, domain.Anonymous, 2); !errors.Is(err, domain.ErrPermissionDenied) {
		t.Errorf("hidden layer error = %v, want permission denied", err)
	}
	view, err := svc.Get(ctx, bobby, 2)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if view.Layer.Name != "layer_2" {
		t.Errorf("Get() = %q", view.Layer.Name)
	}
	if _, err := svc.Get(ctx, admin, 99); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("missing layer error = %v", err)
	}
}

func TestLayerServiceSetPermissionsRequiresAdmin(t *testing.T) {
	ctx := context.Background()
	svc, perms := newLayerFixture(t)
	spec := domain.PermissionSpec{Anonymous: domain.LevelNone, Authenticated: domain.LevelNone}

	if err := svc.SetPermissions(ctx, bobby, 1, spec); !errors.Is(err, domain.ErrPermissionDenied) {
		t.Errorf("bobby error = %v, want permission denied", err)
	}
	if err := svc.SetPermissions(ctx, admin, 1, domain.PermissionSpec{Anonymous: "everything"}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("invalid spec error = %v", err)
	}
	if err := svc.SetPermissions(ctx, admin, 1, spec); err != nil {
		t.Fatalf("admin error = %v", err)
	}
	if perms.specs[1].Anonymous != domain.LevelNone {
		t.Error("permissions were not stored")
	}
}

func TestLayerServiceLayerWithoutRules(t *testing.T) {
	layers := newMockLayers("orphan")
	svc := NewLayerService(layers, newMockPermissions(), &mockUsers{}, testLogger())

	views, _ := svc.List(context.Background(), bobby)
	if len(views) != 0 {
		t.Error("a layer without rules should be hidden from regular users")
	}
	views, _ = svc.List(context.Background(), admin)
	if len(views) != 1 {
		t.Error("superusers see every layer")
	}
}
