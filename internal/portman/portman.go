// Package portman assigns listener ports and persists the service-to-port
// mapping in a registry file so sibling processes can discover a running
// daemon without configuration.
package portman

import (
	"encoding/json"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"syscall"
)

// maxProbe bounds the upward scan for a free port.
const maxProbe = 100

// ServiceEntry is one registered service in the registry file.
type ServiceEntry struct {
	Port       int    `json:"port"`
	HealthPath string `json:"healthPath"`
}

type registryFile struct {
	Services map[string]ServiceEntry `json:"services"`
}

// Manager reads and writes the port registry file. The file is advisory
// locked while rewritten so concurrent starters do not clobber each other.
type Manager struct {
	path     string
	basePort int
}

// New creates a manager over the given registry path (default
// ./run/ports.json) probing from basePort upward.
func New(path string, basePort int) *Manager {
	if path == "" {
		path = filepath.Join("run", "ports.json")
	}
	if basePort <= 0 {
		basePort = 8524
	}
	return &Manager{path: path, basePort: basePort}
}

// AssignPort finds a free port for the service, preferring the port it was
// registered with last time, then the preferred base, then scanning upward.
func (m *Manager) AssignPort(service string) (int, error) {
	if prev, ok := m.DiscoverServicePort(service); ok && portFree(prev) {
		return prev, nil
	}

	for port := m.basePort; port < m.basePort+maxProbe; port++ {
		if portFree(port) {
			return port, nil
		}
	}
	return 0, fmt.Errorf("no free port in range %d-%d", m.basePort, m.basePort+maxProbe-1)
}

// RegisterService records the service's port and health path.
func (m *Manager) RegisterService(name string, port int, healthPath string) error {
	return m.update(func(reg *registryFile) {
		reg.Services[name] = ServiceEntry{Port: port, HealthPath: healthPath}
	})
}

// UnregisterService removes the service's entry. Missing entries are fine.
func (m *Manager) UnregisterService(name string) error {
	return m.update(func(reg *registryFile) {
		delete(reg.Services, name)
	})
}

// DiscoverServicePort returns the registered port for a service.
func (m *Manager) DiscoverServicePort(name string) (int, bool) {
	reg, err := m.read()
	if err != nil {
		return 0, false
	}
	entry, ok := reg.Services[name]
	if !ok || entry.Port <= 0 {
		return 0, false
	}
	return entry.Port, true
}

// HealthPath returns the registered health path for a service.
func (m *Manager) HealthPath(name string) (string, bool) {
	reg, err := m.read()
	if err != nil {
		return "", false
	}
	entry, ok := reg.Services[name]
	if !ok {
		return "", false
	}
	return entry.HealthPath, true
}

func (m *Manager) read() (*registryFile, error) {
	data, err := os.ReadFile(m.path)
	if err != nil {
		if os.IsNotExist(err) {
			return &registryFile{Services: map[string]ServiceEntry{}}, nil
		}
		return nil, err
	}

	var reg registryFile
	if err := json.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("parse port registry %s: %w", m.path, err)
	}
	if reg.Services == nil {
		reg.Services = map[string]ServiceEntry{}
	}
	return &reg, nil
}

// update applies fn to the registry under an advisory lock and rewrites the
// file atomically via a temp file rename.
func (m *Manager) update(fn func(reg *registryFile)) error {
	if err := os.MkdirAll(filepath.Dir(m.path), 0o755); err != nil {
		return fmt.Errorf("create registry directory: %w", err)
	}

	lock, err := os.OpenFile(m.path+".lock", os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return fmt.Errorf("open registry lock: %w", err)
	}
	defer lock.Close()
	if err := syscall.Flock(int(lock.Fd()), syscall.LOCK_EX); err != nil {
		return fmt.Errorf("lock registry: %w", err)
	}
	defer syscall.Flock(int(lock.Fd()), syscall.LOCK_UN)

	reg, err := m.read()
	if err != nil {
		return err
	}
	fn(reg)

	data, err := json.MarshalIndent(reg, "", "  ")
	if err != nil {
		return fmt.Errorf("encode port registry: %w", err)
	}

	tmp := m.path + ".tmp"
	if err := os.WriteFile(tmp, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write port registry: %w", err)
	}
	return os.Rename(tmp, m.path)
}

func portFree(port int) bool {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return false
	}
	ln.Close()
	return true
}
