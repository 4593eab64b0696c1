package blockdev

import (
	"bytes"
	"fmt"
	"path/filepath"

	"github.com/godbus/dbus/v5"

	"github.com/kriansa/uamount/internal/log"
)

const (
	// DBus service and interface constants for udisks2
	dbusService       = "org.freedesktop.UDisks2"
	dbusRootPath      = "/org/freedesktop/UDisks2"
	dbusObjectManager = "org.freedesktop.DBus.ObjectManager"

	dbusBlockInterface = "org.freedesktop.UDisks2.Block"
)

// DBusResolver resolves device identities through the udisks2 DBus API
type DBusResolver struct {
	conn      DBusConnection
	connectFn func() (DBusConnection, error)
}

// DBusResolverOption is a functional option for DBusResolver
type DBusResolverOption func(*DBusResolver)

// WithConnection sets a custom DBus connection (for testing)
func WithConnection(conn DBusConnection) DBusResolverOption {
	return func(r *DBusResolver) {
		r.conn = conn
		r.connectFn = nil
	}
}

// NewDBusResolver creates a new udisks2-backed resolver
func NewDBusResolver(opts ...DBusResolverOption) (*DBusResolver, error) {
	r := &DBusResolver{
		connectFn: ConnectSystemBus,
	}

	for _, opt := range opts {
		opt(r)
	}

	if r.conn == nil {
		conn, err := r.connectFn()
		if err != nil {
			return nil, fmt.Errorf("connect to system bus: %w", err)
		}
		r.conn = conn
	}

	return r, nil
}

// Close closes the DBus connection
func (r *DBusResolver) Close() error {
	if r.conn != nil {
		return r.conn.Close()
	}
	return nil
}

// Resolve looks up the udisks2 block object for devicePath and returns
// its filesystem UUID
func (r *DBusResolver) Resolve(devicePath string) (string, error) {
	log.Debug("resolving device identity", "device", devicePath, "backend", "dbus")

	// udisks2 reports canonical device nodes, so resolve symlinks like
	// /dev/disk/by-label/... first
	resolved, err := filepath.EvalSymlinks(devicePath)
	if err != nil {
		resolved = devicePath
	}

	objects, err := r.getManagedObjects()
	if err != nil {
		return "", err
	}

	for path, interfaces := range objects {
		blockProps, ok := interfaces[dbusBlockInterface]
		if !ok {
			continue
		}

		device, ok := blockDevicePath(blockProps)
		if !ok || (device != devicePath && device != resolved) {
			continue
		}

		uuid := blockStringProp(blockProps, "IdUUID")
		if uuid == "" {
			return "", fmt.Errorf("%s: %w", devicePath, ErrNoUUID)
		}

		log.Debug("device identity resolved", "device", devicePath, "uuid", uuid, "object", path)
		return uuid, nil
	}

	return "", fmt.Errorf("device %s not known to udisks2", devicePath)
}

// getManagedObjects calls GetManagedObjects on the ObjectManager interface
// Returns: map[ObjectPath]map[InterfaceName]map[PropertyName]Variant
func (r *DBusResolver) getManagedObjects() (map[dbus.ObjectPath]map[string]map[string]dbus.Variant, error) {
	obj := r.conn.Object(dbusService, dbus.ObjectPath(dbusRootPath))

	var result map[dbus.ObjectPath]map[string]map[string]dbus.Variant
	call := obj.Call(dbusObjectManager+".GetManagedObjects", 0)
	if call.Err != nil {
		return nil, fmt.Errorf("GetManagedObjects: %w", call.Err)
	}

	if err := call.Store(&result); err != nil {
		return nil, fmt.Errorf("store GetManagedObjects result: %w", err)
	}

	return result, nil
}

// blockDevicePath extracts the device node from a Block property map.
// udisks2 stores it as a NUL-terminated byte array.
func blockDevicePath(props map[string]dbus.Variant) (string, bool) {
	v, ok := props["Device"]
	if !ok {
		return "", false
	}

	raw, ok := v.Value().([]byte)
	if !ok {
		return "", false
	}

	return string(bytes.TrimRight(raw, "\x00")), true
}

// blockStringProp extracts a string property from a Block property map
func blockStringProp(props map[string]dbus.Variant, name string) string {
	v, ok := props[name]
	if !ok {
		return ""
	}

	s, ok := v.Value().(string)
	if !ok {
		return ""
	}
	return s
}
