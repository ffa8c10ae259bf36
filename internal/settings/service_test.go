package settings

import (
	"context"
	"testing"

	"github.com/andreivasquez/lumapay-pos/pkg/enums"
	pkgerrors "github.com/andreivasquez/lumapay-pos/pkg/errors"
)

type fakeStore struct {
	getFn func(ctx context.Context, key string) ([]byte, bool, error)
	setFn func(ctx context.Context, key string, value []byte) error
}

func (f *fakeStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return f.getFn(ctx, key)
}

func (f *fakeStore) Set(ctx context.Context, key string, value []byte) error {
	return f.setFn(ctx, key, value)
}

func TestGetReturnsDefaultsWhenMissing(t *testing.T) {
	svc, err := NewService(&fakeStore{
		getFn: func(ctx context.Context, key string) ([]byte, bool, error) {
			if key != "pos_settings" {
				t.Fatalf("unexpected key %q", key)
			}
			return nil, false, nil
		},
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	settings, err := svc.Get(context.Background())
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if settings != Defaults() {
		t.Fatalf("expected defaults, got %+v", settings)
	}
	if settings.QRStyle != enums.QRStyleDynamic {
		t.Fatalf("default qr style should be dynamic")
	}
}

func TestGetFallsBackOnCorruptDocument(t *testing.T) {
	svc, _ := NewService(&fakeStore{
		getFn: func(ctx context.Context, key string) ([]byte, bool, error) {
			return []byte("{not json"), true, nil
		},
	})

	settings, err := svc.Get(context.Background())
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if settings != Defaults() {
		t.Fatalf("expected defaults for corrupt document, got %+v", settings)
	}
}

func TestPutReplacesWholeDocument(t *testing.T) {
	var written []byte
	svc, _ := NewService(&fakeStore{
		setFn: func(ctx context.Context, key string, value []byte) error {
			written = value
			return nil
		},
		getFn: func(ctx context.Context, key string) ([]byte, bool, error) {
			return written, written != nil, nil
		},
	})

	in := PosSettings{
		OfflineMode: true,
		QRStyle:     enums.QRStyleStatic,
		StoreName:   "Corner Deli",
		Sound:       false,
		Vibration:   true,
	}
	if err := svc.Put(context.Background(), in); err != nil {
		t.Fatalf("put: %v", err)
	}

	out, err := svc.Get(context.Background())
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if out != in {
		t.Fatalf("expected %+v, got %+v", in, out)
	}
	// Unlisted fields reset to zero values on replace.
	if out.InventoryLinked {
		t.Fatalf("inventory_linked should have been cleared")
	}
}

func TestPutRejectsUnknownQRStyle(t *testing.T) {
	svc, _ := NewService(&fakeStore{
		setFn: func(ctx context.Context, key string, value []byte) error {
			t.Fatalf("store should not be written for invalid settings")
			return nil
		},
	})

	err := svc.Put(context.Background(), PosSettings{QRStyle: enums.QRStyle("hologram")})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}
