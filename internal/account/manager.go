package account

import (
	"fmt"
	"sync"

	"RoboInvestor/internal/model"

	"github.com/rs/zerolog/log"
)

// Manager holds the account balance used for sizing, persisted across runs.
type Manager struct {
	mu       sync.Mutex
	state    *model.AccountState
	filePath string
}

// NewManager loads the state from disk, seeding it with defaultBalance on first use.
func NewManager(filePath string, defaultBalance float64) (*Manager, error) {
	state, err := LoadState(filePath)
	if err != nil {
		return nil, fmt.Errorf("load account state: %w", err)
	}

	m := &Manager{state: state, filePath: filePath}
	if state.UpdatedAt.IsZero() {
		state.Balance = defaultBalance
		if err := m.save(); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Balance returns the current account balance.
func (m *Manager) Balance() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.Balance
}

// SetBalance overrides the balance and persists it.
func (m *Manager) SetBalance(balance float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	log.Info().Float64("balance", balance).Msg("setting account balance")
	prev := m.state.Balance
	m.state.Balance = balance
	if err := m.save(); err != nil {
		m.state.Balance = prev
		return err
	}
	return nil
}

// GetState returns a copy of the current account state.
func (m *Manager) GetState() model.AccountState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.state
}

func (m *Manager) save() error {
	if err := SaveState(m.filePath, m.state); err != nil {
		return fmt.Errorf("save account state: %w", err)
	}
	return nil
}
