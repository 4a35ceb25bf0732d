package networking

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/multihome/mhroute/src/internal/config"
)

func testSpec() MarkSpec {
	return MarkSpec{
		Device:    "eth0",
		LocalAddr: net.ParseIP("192.168.1.5"),
		Mark:      1,
		Table:     1,
		Port:      4000,
	}
}

func TestProcessRulePart_TemplateSubstitution(t *testing.T) {
	tests := []struct {
		name     string
		template string
		expected string
	}{
		{"no template variables", "-j ACCEPT", "-j ACCEPT"},
		{"device", "-o {{device}}", "-o eth0"},
		{"local address", "-s {{local_addr}}", "-s 192.168.1.5"},
		{"fwmark and table", "--set-mark {{fwmark}} # {{table}}", "--set-mark 1 # 1"},
		{"port", "--sport {{port}}", "--sport 4000"},
		{"default rule", config.DefaultMarkRule, "-o eth0 -p udp -s 192.168.1.5 -j MARK --set-mark 1"},
		{"unknown variable is dropped", "-o {{unknown}} -j MARK", "-o  -j MARK"},
		{"empty template", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rendered, err := processRulePart(tt.template, testSpec())
			require.NoError(t, err)
			assert.Equal(t, tt.expected, rendered)
		})
	}
}

func TestProcessRulePart_UnterminatedTag(t *testing.T) {
	_, err := processRulePart("-o {{device} -j MARK", testSpec())
	assert.Error(t, err)
}

func TestMarkRules_UnterminatedTemplate(t *testing.T) {
	ipt := newFakeIPTables()
	m := newMarkRules(ipt, config.DefaultMarkChain, "-p udp -j MARK --set-mark {{fwmark}} -o {{device", false)

	_, err := m.Rule(testSpec())
	assert.Error(t, err)
	assert.Error(t, m.Add(testSpec()))
	assert.Error(t, m.Del(testSpec()))
	_, err = m.Exists(testSpec())
	assert.Error(t, err)
	assert.Contains(t, m.Command("-A", testSpec()), "{{device")
}

func TestMarkRules_Rule(t *testing.T) {
	t.Run("port restriction inserted before target", func(t *testing.T) {
		m := newMarkRules(newFakeIPTables(), config.DefaultMarkChain, config.DefaultMarkRule, true)
		rule, err := m.Rule(testSpec())
		require.NoError(t, err)
		assert.Equal(t,
			[]string{"-o", "eth0", "-p", "udp", "-s", "192.168.1.5", "--sport", "4000", "-j", "MARK", "--set-mark", "1"},
			rule)
	})

	t.Run("ephemeral port is not restricted", func(t *testing.T) {
		m := newMarkRules(newFakeIPTables(), config.DefaultMarkChain, config.DefaultMarkRule, true)
		spec := testSpec()
		spec.Port = 0
		rule, err := m.Rule(spec)
		require.NoError(t, err)
		assert.NotContains(t, rule, "--sport")
	})

	t.Run("template with its own port placeholder", func(t *testing.T) {
		m := newMarkRules(newFakeIPTables(), "CHAIN", "-p udp --sport {{port}} -j MARK --set-mark {{fwmark}}", true)
		rule, err := m.Rule(testSpec())
		require.NoError(t, err)
		assert.Equal(t, []string{"-p", "udp", "--sport", "4000", "-j", "MARK", "--set-mark", "1"}, rule)
	})

	t.Run("command line", func(t *testing.T) {
		m := newMarkRules(newFakeIPTables(), config.DefaultMarkChain, config.DefaultMarkRule, false)
		assert.Equal(t,
			"iptables -t mangle -A MHROUTE_MARK -o eth0 -p udp -s 192.168.1.5 -j MARK --set-mark 1",
			m.Command("-A", testSpec()))
	})
}

func TestMarkRules_Lifecycle(t *testing.T) {
	ipt := newFakeIPTables()
	m := newMarkRules(ipt, config.DefaultMarkChain, config.DefaultMarkRule, false)

	require.NoError(t, m.Add(testSpec()))
	require.NoError(t, m.Add(testSpec()))

	wlan := testSpec()
	wlan.Device = "wlan0"
	wlan.LocalAddr = net.ParseIP("10.0.0.2")
	wlan.Mark = 21
	require.NoError(t, m.Add(wlan))

	assert.Equal(t, []string{"-j MHROUTE_MARK"}, ipt.chains["mangle/OUTPUT"])
	assert.Len(t, ipt.chains["mangle/MHROUTE_MARK"], 2)

	require.NoError(t, m.Del(wlan))
	assert.Len(t, ipt.chains["mangle/MHROUTE_MARK"], 1)

	require.NoError(t, m.Flush())
	_, exists := ipt.chains["mangle/MHROUTE_MARK"]
	assert.False(t, exists)
	assert.Empty(t, ipt.chains["mangle/OUTPUT"])

	require.NoError(t, m.Flush(), "flushing a missing chain is a no-op")
}

func TestInsertBeforeTarget(t *testing.T) {
	assert.Equal(t, "-p udp --sport 1 -j MARK", insertBeforeTarget("-p udp -j MARK", "--sport 1"))
	assert.Equal(t, "-p udp --sport 1 --jump MARK", insertBeforeTarget("-p udp --jump MARK", "--sport 1"))
	assert.Equal(t, "-p udp --sport 1", insertBeforeTarget("-p udp", "--sport 1"))
}
