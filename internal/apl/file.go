package apl

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"

	"github.com/saleor-apps/openweb3-payment/internal/domain"
)

// DefaultAuthFile is where FileAPL persists auth data when no path is given.
const DefaultAuthFile = ".auth-data.json"

// FileAPL persists auth data as a single JSON document on disk, keyed by
// Saleor API URL. Suitable for single-tenant local deployments only; every
// write rewrites the whole file under one process-wide mutex.
type FileAPL struct {
	mux  sync.Mutex
	path string
}

var _ APL = (*FileAPL)(nil)

// NewFileAPL creates a file-backed store at path. An empty path selects
// DefaultAuthFile in the working directory.
func NewFileAPL(path string) *FileAPL {
	if path == "" {
		path = DefaultAuthFile
	}
	return &FileAPL{path: path}
}

func (a *FileAPL) load() (map[string]domain.AuthData, error) {
	raw, err := os.ReadFile(a.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return map[string]domain.AuthData{}, nil
		}
		return nil, err
	}
	if len(raw) == 0 {
		return map[string]domain.AuthData{}, nil
	}
	var all map[string]domain.AuthData
	if err := json.Unmarshal(raw, &all); err != nil {
		return nil, fmt.Errorf("apl: decode %s: %w", a.path, err)
	}
	return all, nil
}

func (a *FileAPL) save(all map[string]domain.AuthData) error {
	raw, err := json.MarshalIndent(all, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(a.path, raw, 0o600)
}

func (a *FileAPL) Get(_ context.Context, saleorAPIURL string) (*domain.AuthData, error) {
	a.mux.Lock()
	defer a.mux.Unlock()
	all, err := a.load()
	if err != nil {
		return nil, err
	}
	data, ok := all[saleorAPIURL]
	if !ok {
		return nil, nil
	}
	return &data, nil
}

func (a *FileAPL) Set(_ context.Context, data *domain.AuthData) error {
	a.mux.Lock()
	defer a.mux.Unlock()
	all, err := a.load()
	if err != nil {
		return err
	}
	all[data.SaleorAPIURL] = *data
	return a.save(all)
}

func (a *FileAPL) Delete(_ context.Context, saleorAPIURL string) error {
	a.mux.Lock()
	defer a.mux.Unlock()
	all, err := a.load()
	if err != nil {
		return err
	}
	if _, ok := all[saleorAPIURL]; !ok {
		return nil
	}
	delete(all, saleorAPIURL)
	return a.save(all)
}

func (a *FileAPL) GetAll(_ context.Context) ([]domain.AuthData, error) {
	a.mux.Lock()
	defer a.mux.Unlock()
	all, err := a.load()
	if err != nil {
		return nil, err
	}
	out := make([]domain.AuthData, 0, len(all))
	for _, data := range all {
		out = append(out, data)
	}
	return out, nil
}

func (a *FileAPL) IsReady(_ context.Context) ReadyResult {
	return ReadyResult{Ready: true}
}

// IsConfigured verifies the auth file's directory is writable by loading
// the current contents.
func (a *FileAPL) IsConfigured(_ context.Context) ConfiguredResult {
	a.mux.Lock()
	defer a.mux.Unlock()
	if _, err := a.load(); err != nil {
		return ConfiguredResult{Configured: false, Err: err}
	}
	return ConfiguredResult{Configured: true}
}

func (a *FileAPL) Close() error { return nil }
