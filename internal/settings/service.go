package settings

import (
	"context"
	"encoding/json"

	"github.com/andreivasquez/lumapay-pos/pkg/enums"
	pkgerrors "github.com/andreivasquez/lumapay-pos/pkg/errors"
	"github.com/andreivasquez/lumapay-pos/pkg/kvstore"
)

const settingsKey = "pos_settings"

// PosSettings is the terminal-local configuration surface. Writes replace the
// whole document; there is no field-level patching.
type PosSettings struct {
	OfflineMode     bool          `json:"offline_mode"`
	QRStyle         enums.QRStyle `json:"qr_style" validate:"required"`
	StoreName       string        `json:"store_name"`
	Sound           bool          `json:"sound"`
	Vibration       bool          `json:"vibration"`
	InventoryLinked bool          `json:"inventory_linked"`
}

// Defaults is the settings document used before the merchant saves anything.
func Defaults() PosSettings {
	return PosSettings{
		OfflineMode:     false,
		QRStyle:         enums.QRStyleDynamic,
		StoreName:       "",
		Sound:           true,
		Vibration:       true,
		InventoryLinked: false,
	}
}

// Service reads and replaces the persisted settings document.
type Service interface {
	Get(ctx context.Context) (PosSettings, error)
	Put(ctx context.Context, settings PosSettings) error
}

type service struct {
	store kvstore.Store
}

// NewService wires settings persistence.
func NewService(store kvstore.Store) (Service, error) {
	if store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "settings store required")
	}
	return &service{store: store}, nil
}

func (s *service) Get(ctx context.Context) (PosSettings, error) {
	raw, found, err := s.store.Get(ctx, settingsKey)
	if err != nil {
		return PosSettings{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "read settings")
	}
	if !found {
		return Defaults(), nil
	}

	var settings PosSettings
	if err := json.Unmarshal(raw, &settings); err != nil {
		// A corrupt document falls back to defaults rather than bricking
		// the terminal.
		return Defaults(), nil
	}
	if !settings.QRStyle.IsValid() {
		settings.QRStyle = enums.QRStyleDynamic
	}
	return settings, nil
}

func (s *service) Put(ctx context.Context, settings PosSettings) error {
	if !settings.QRStyle.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "unknown qr style").
			WithDetails(map[string]string{"qr_style": string(settings.QRStyle)})
	}

	raw, err := json.Marshal(settings)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode settings")
	}
	if err := s.store.Set(ctx, settingsKey, raw); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "persist settings")
	}
	return nil
}
