package blockdev

import (
	"context"
	"testing"

	"github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockBusObject implements dbus.BusObject for testing
type mockBusObject struct {
	callResults map[string]*dbus.Call
}

func (m *mockBusObject) Call(method string, flags dbus.Flags, args ...any) *dbus.Call {
	if call, ok := m.callResults[method]; ok {
		return call
	}
	return &dbus.Call{Err: dbus.ErrMsgNoObject}
}

func (m *mockBusObject) CallWithContext(_ context.Context, method string, flags dbus.Flags, args ...any) *dbus.Call {
	return m.Call(method, flags, args...)
}

func (m *mockBusObject) Go(method string, flags dbus.Flags, ch chan *dbus.Call, args ...any) *dbus.Call {
	return m.Call(method, flags, args...)
}

func (m *mockBusObject) GoWithContext(_ context.Context, method string, flags dbus.Flags, ch chan *dbus.Call, args ...any) *dbus.Call {
	return m.Call(method, flags, args...)
}

func (m *mockBusObject) AddMatchSignal(iface, member string, options ...dbus.MatchOption) *dbus.Call {
	return &dbus.Call{}
}

func (m *mockBusObject) RemoveMatchSignal(iface, member string, options ...dbus.MatchOption) *dbus.Call {
	return &dbus.Call{}
}

func (m *mockBusObject) GetProperty(p string) (dbus.Variant, error) {
	return dbus.Variant{}, nil
}

func (m *mockBusObject) StoreProperty(p string, value any) error {
	return nil
}

func (m *mockBusObject) SetProperty(p string, v any) error {
	return nil
}

func (m *mockBusObject) Destination() string {
	return dbusService
}

func (m *mockBusObject) Path() dbus.ObjectPath {
	return dbus.ObjectPath(dbusRootPath)
}

// mockDBusConnection implements DBusConnection for testing
type mockDBusConnection struct {
	objects map[dbus.ObjectPath]*mockBusObject
}

func (m *mockDBusConnection) Object(dest string, path dbus.ObjectPath) dbus.BusObject {
	if obj, ok := m.objects[path]; ok {
		return obj
	}
	return &mockBusObject{callResults: map[string]*dbus.Call{}}
}

func (m *mockDBusConnection) Close() error {
	return nil
}

type mockBlock struct {
	path   dbus.ObjectPath
	device string
	idUUID string
}

// makeManagedObjects builds the udisks2 object tree the resolver walks.
// Device nodes are NUL-terminated byte arrays, as udisks2 reports them.
func makeManagedObjects(blocks []mockBlock) map[dbus.ObjectPath]map[string]map[string]dbus.Variant {
	result := make(map[dbus.ObjectPath]map[string]map[string]dbus.Variant)

	for _, b := range blocks {
		result[b.path] = map[string]map[string]dbus.Variant{
			dbusBlockInterface: {
				"Device": dbus.MakeVariant(append([]byte(b.device), 0)),
				"IdUUID": dbus.MakeVariant(b.idUUID),
			},
		}
	}

	return result
}

func newMockResolver(t *testing.T, blocks []mockBlock) *DBusResolver {
	t.Helper()

	rootObj := &mockBusObject{
		callResults: map[string]*dbus.Call{
			dbusObjectManager + ".GetManagedObjects": {
				Body: []any{makeManagedObjects(blocks)},
			},
		},
	}

	conn := &mockDBusConnection{
		objects: map[dbus.ObjectPath]*mockBusObject{
			dbus.ObjectPath(dbusRootPath): rootObj,
		},
	}

	resolver, err := NewDBusResolver(WithConnection(conn))
	require.NoError(t, err)
	return resolver
}

func TestDBusResolve(t *testing.T) {
	resolver := newMockResolver(t, []mockBlock{
		{
			path:   "/org/freedesktop/UDisks2/block_devices/sda1",
			device: "/dev/sda1",
			idUUID: "0914a951-1d42-4d0a-ac1e-32f6a8d66f64",
		},
		{
			path:   "/org/freedesktop/UDisks2/block_devices/sdb1",
			device: "/dev/sdb1",
			idUUID: "ABCD-1234",
		},
	})

	uuid, err := resolver.Resolve("/dev/sdb1")
	require.NoError(t, err)
	assert.Equal(t, "ABCD-1234", uuid)
}

func TestDBusResolveNoUUID(t *testing.T) {
	resolver := newMockResolver(t, []mockBlock{
		{
			path:   "/org/freedesktop/UDisks2/block_devices/sdb1",
			device: "/dev/sdb1",
			idUUID: "",
		},
	})

	_, err := resolver.Resolve("/dev/sdb1")
	assert.ErrorIs(t, err, ErrNoUUID)
}

func TestDBusResolveUnknownDevice(t *testing.T) {
	resolver := newMockResolver(t, []mockBlock{
		{
			path:   "/org/freedesktop/UDisks2/block_devices/sda1",
			device: "/dev/sda1",
			idUUID: "0914a951-1d42-4d0a-ac1e-32f6a8d66f64",
		},
	})

	_, err := resolver.Resolve("/dev/sdz9")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoUUID)
}

func TestDBusResolveCallFailure(t *testing.T) {
	conn := &mockDBusConnection{objects: map[dbus.ObjectPath]*mockBusObject{}}

	resolver, err := NewDBusResolver(WithConnection(conn))
	require.NoError(t, err)

	_, err = resolver.Resolve("/dev/sdb1")
	assert.Error(t, err)
}
