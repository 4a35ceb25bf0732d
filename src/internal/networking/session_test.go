package networking

import (
	stderrors "errors"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/multihome/mhroute/src/internal/errors"
)

func newTestSession(ctrl RouteController, strict bool) *Session {
	return NewSession(ctrl, DefaultTableNumberer(), SessionOptions{Strict: strict})
}

func mask24() net.IPMask {
	return net.CIDRMask(24, 32)
}

func TestSessionInstall_StepsInOrder(t *testing.T) {
	ctrl := NewRecordingController()
	session := newTestSession(ctrl, false)

	table, err := session.Install("eth0", net.ParseIP("192.168.1.5"), mask24(), 4000)
	require.NoError(t, err)

	assert.Equal(t, []string{
		OpFlushTable, OpAddMarkRule, OpAddTableRule, OpAddSubnetRoute, OpAddDefaultRoute,
	}, ctrl.Ops())

	assert.Equal(t, 1, table.Number)
	assert.Equal(t, uint32(1), table.Mark)
	assert.Equal(t, "192.168.1.0/24", table.Subnet.String())
	assert.Equal(t, "192.168.1.1", table.Gateway.String())
	assert.Len(t, table.Objects, 4)
	assert.Len(t, table.Results, 5)

	mark := ctrl.Calls[1]
	assert.Equal(t, "eth0", mark.Spec.Device)
	assert.Equal(t, "192.168.1.5", mark.Spec.LocalAddr.String())
	assert.Equal(t, uint32(1), mark.Spec.Mark)
	assert.Equal(t, 4000, mark.Spec.Port)

	rule := ctrl.Calls[2]
	assert.Equal(t, uint32(1), rule.Mark)
	assert.Equal(t, 1, rule.Table)

	subnet := ctrl.Calls[3]
	assert.Equal(t, "192.168.1.0/24", subnet.Subnet)
	assert.Equal(t, "eth0", subnet.Device)
	assert.Equal(t, "192.168.1.5", subnet.Src)

	def := ctrl.Calls[4]
	assert.Equal(t, "192.168.1.1", def.Gw)
	assert.Equal(t, 1, def.Table)
}

func TestSessionInstall_NonCanonicalMaskUsesPopcount(t *testing.T) {
	ctrl := NewRecordingController()
	session := newTestSession(ctrl, false)

	table, err := session.Install("wlan1", net.ParseIP("10.0.0.2"), net.IPMask{255, 255, 0, 255}, 0)
	require.NoError(t, err)

	assert.Equal(t, 22, table.Number)
	ones, _ := table.Subnet.Mask.Size()
	assert.Equal(t, 24, ones)
}

func TestSessionInstall_UnknownInterface(t *testing.T) {
	ctrl := NewRecordingController()
	session := newTestSession(ctrl, false)

	table, err := session.Install("usb0", net.ParseIP("192.168.8.100"), mask24(), 0)
	assert.Nil(t, table)
	assert.ErrorIs(t, err, ErrNoTable)
	assert.Empty(t, ctrl.Calls)
	assert.Empty(t, session.Tables())
}

func TestSessionInstall_RejectsIPv6(t *testing.T) {
	ctrl := NewRecordingController()
	session := newTestSession(ctrl, false)

	_, err := session.Install("eth0", net.ParseIP("fe80::1"), mask24(), 0)
	assert.True(t, errors.HasCode(err, errors.ErrCodeRouting))
	assert.NotErrorIs(t, err, ErrNoTable)
	assert.Empty(t, ctrl.Calls)
}

func TestSessionInstall_AlreadyTracked(t *testing.T) {
	ctrl := NewRecordingController()
	session := newTestSession(ctrl, false)

	first, err := session.Install("eth0", net.ParseIP("192.168.1.5"), mask24(), 0)
	require.NoError(t, err)
	second, err := session.Install("eth0", net.ParseIP("192.168.1.5"), mask24(), 0)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Len(t, ctrl.Calls, 5)
	assert.Len(t, session.Tables(), 1)
}

func TestSessionInstall_BestEffortContinues(t *testing.T) {
	ctrl := NewRecordingController()
	ctrl.Fail(OpAddTableRule, stderrors.New("file exists"))
	session := newTestSession(ctrl, false)

	table, err := session.Install("eth0", net.ParseIP("192.168.1.5"), mask24(), 0)
	require.NoError(t, err)

	assert.Len(t, ctrl.Calls, 5)
	assert.False(t, table.Results[2].OK)
	assert.Len(t, table.Objects, 3)
	assert.Len(t, session.Tables(), 1)
}

func TestSessionInstall_StrictRollsBack(t *testing.T) {
	ctrl := NewRecordingController()
	ctrl.Fail(OpAddSubnetRoute, stderrors.New("network unreachable"))
	session := newTestSession(ctrl, true)

	table, err := session.Install("eth0", net.ParseIP("192.168.1.5"), mask24(), 0)
	assert.Nil(t, table)
	assert.True(t, errors.HasCode(err, errors.ErrCodeRouting))
	assert.NotErrorIs(t, err, ErrNoTable)

	assert.Equal(t, []string{
		OpFlushTable, OpAddMarkRule, OpAddTableRule, OpAddSubnetRoute,
		OpDelTableRule, OpDelMarkRule,
	}, ctrl.Ops())
	assert.Empty(t, session.Tables())
}

func TestSessionTeardownAll(t *testing.T) {
	ctrl := NewRecordingController()
	session := newTestSession(ctrl, false)

	_, err := session.Install("eth0", net.ParseIP("192.168.1.5"), mask24(), 0)
	require.NoError(t, err)
	_, err = session.Install("wlan0", net.ParseIP("10.0.0.2"), mask24(), 0)
	require.NoError(t, err)
	ctrl.Calls = nil

	assert.Equal(t, 2, session.TeardownAll())
	assert.Equal(t, []string{
		OpFlushTable, OpDelTableRule,
		OpFlushTable, OpDelTableRule,
		OpFlushMarkRules,
	}, ctrl.Ops())
	assert.Equal(t, 1, ctrl.Calls[0].Table)
	assert.Equal(t, 21, ctrl.Calls[2].Table)
	assert.Empty(t, session.Tables())

	ctrl.Calls = nil
	assert.Equal(t, 0, session.TeardownAll())
	assert.Empty(t, ctrl.Calls)
}

func TestSessionTeardownAll_ContinuesPastFailures(t *testing.T) {
	ctrl := NewRecordingController()
	session := newTestSession(ctrl, false)

	_, err := session.Install("eth0", net.ParseIP("192.168.1.5"), mask24(), 0)
	require.NoError(t, err)
	_, err = session.Install("ppp0", net.ParseIP("100.64.0.7"), net.CIDRMask(32, 32), 0)
	require.NoError(t, err)

	ctrl.Calls = nil
	ctrl.Fail(OpFlushTable, stderrors.New("no such process"))
	ctrl.Fail(OpDelTableRule, stderrors.New("no such file"))

	assert.Equal(t, 2, session.TeardownAll())
	assert.Len(t, ctrl.Calls, 5)
	assert.Empty(t, session.Tables())
}

func TestSessionUndo(t *testing.T) {
	ctrl := NewRecordingController()
	session := newTestSession(ctrl, false)

	_, err := session.Install("eth0", net.ParseIP("192.168.1.5"), mask24(), 0)
	require.NoError(t, err)
	ctrl.Calls = nil

	results := session.Undo([]string{"eth0", "usb0", "wlan2", "eth0"})
	assert.Len(t, results, 5)
	assert.Equal(t, []string{
		OpFlushTable, OpDelTableRule,
		OpFlushTable, OpDelTableRule,
		OpFlushMarkRules,
	}, ctrl.Ops())
	assert.Equal(t, 23, ctrl.Calls[2].Table)
	assert.Equal(t, uint32(23), ctrl.Calls[3].Mark)
	assert.Empty(t, session.Tables())
}

func TestSessionTables_ReturnsCopies(t *testing.T) {
	ctrl := NewRecordingController()
	session := newTestSession(ctrl, false)

	_, err := session.Install("eth0", net.ParseIP("192.168.1.5"), mask24(), 0)
	require.NoError(t, err)

	tables := session.Tables()
	tables[0].Objects[0].Command = "changed"
	tables[0].Number = 99

	again := session.Tables()
	assert.Equal(t, 1, again[0].Number)
	assert.NotEqual(t, "changed", again[0].Objects[0].Command)
}

func TestSession_CustomGateway(t *testing.T) {
	ctrl := NewRecordingController()
	session := NewSession(ctrl, nil, SessionOptions{
		Gateway: func(iface string, network net.IP) net.IP { return net.ParseIP("192.168.1.254").To4() },
	})

	table, err := session.Install("eth0", net.ParseIP("192.168.1.5"), mask24(), 0)
	require.NoError(t, err)
	assert.Equal(t, "192.168.1.254", table.Gateway.String())
	assert.Equal(t, "192.168.1.254", ctrl.Calls[4].Gw)
}
