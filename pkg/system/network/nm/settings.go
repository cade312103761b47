package network_nm

import (
	"net/netip"

	wificonnect "github.com/dogeorg/wificonnect/pkg"
	"github.com/godbus/dbus/v5"
)

// connectionSettings is NetworkManager's a{sa{sv}} settings dictionary.
type connectionSettings map[string]map[string]dbus.Variant

const (
	settingConnection = "connection"
	settingWireless   = "802-11-wireless"
	settingSecurity   = "802-11-wireless-security"
	setting8021x      = "802-1x"
	settingIPv4       = "ipv4"
	settingIPv6       = "ipv6"

	hotspotPrefix uint32 = 24
)

// NM_802_11_AP_FLAGS_PRIVACY and NM_802_11_AP_SEC_KEY_MGMT_802_1X
const (
	apFlagPrivacy     uint32 = 0x1
	apSecKeyMgmt8021X uint32 = 0x200
)

// security derives capability flags from an access point's Flags,
// WpaFlags and RsnFlags properties.
func security(flags, wpa, rsn uint32) wificonnect.Security {
	var s wificonnect.Security
	if flags&apFlagPrivacy != 0 && wpa == 0 && rsn == 0 {
		s |= wificonnect.SecurityWEP
	}
	if wpa != 0 {
		s |= wificonnect.SecurityWPA
	}
	if rsn != 0 {
		s |= wificonnect.SecurityWPA2
	}
	if (wpa|rsn)&apSecKeyMgmt8021X != 0 {
		s |= wificonnect.SecurityEnterprise
	}
	return s
}

func parseSettings(raw connectionSettings) wificonnect.ConnectionSettings {
	s := wificonnect.ConnectionSettings{AutoConnect: true}

	if c, ok := raw[settingConnection]; ok {
		s.ID, _ = c["id"].Value().(string)
		s.UUID, _ = c["uuid"].Value().(string)
		s.Kind, _ = c["type"].Value().(string)
		if auto, ok := c["autoconnect"].Value().(bool); ok {
			s.AutoConnect = auto
		}
	}

	if w, ok := raw[settingWireless]; ok {
		ssid, _ := w["ssid"].Value().([]byte)
		s.SSID = wificonnect.SSID(ssid)
		s.Mode, _ = w["mode"].Value().(string)
		if s.Mode == "" {
			s.Mode = wificonnect.WIRELESS_MODE_INFRASTRUCTURE
		}
	}

	if sec, ok := raw[settingSecurity]; ok {
		s.KeyManagement, _ = sec["key-mgmt"].Value().(string)
	}

	return s
}

// connectSettings builds a client profile for ssid. Everything not set
// here (addressing, ids) is filled in by NetworkManager.
func connectSettings(ssid wificonnect.SSID, creds wificonnect.Credentials) connectionSettings {
	id := string(ssid)

	settings := connectionSettings{
		settingConnection: {
			"id":   dbus.MakeVariant(id),
			"type": dbus.MakeVariant(wificonnect.CONNECTION_KIND_WIRELESS),
		},
		settingWireless: {
			"ssid": dbus.MakeVariant([]byte(ssid)),
			"mode": dbus.MakeVariant(wificonnect.WIRELESS_MODE_INFRASTRUCTURE),
		},
	}

	switch c := creds.(type) {
	case wificonnect.WPACredentials:
		settings[settingSecurity] = map[string]dbus.Variant{
			"key-mgmt": dbus.MakeVariant("wpa-psk"),
			"psk":      dbus.MakeVariant(c.Passphrase),
		}
	case wificonnect.WEPCredentials:
		settings[settingSecurity] = map[string]dbus.Variant{
			"key-mgmt":     dbus.MakeVariant("none"),
			"wep-key0":     dbus.MakeVariant(c.Passphrase),
			"wep-key-type": dbus.MakeVariant(wepKeyType(c.Passphrase)),
		}
	case wificonnect.EnterpriseCredentials:
		settings[settingSecurity] = map[string]dbus.Variant{
			"key-mgmt": dbus.MakeVariant("wpa-eap"),
		}
		settings[setting8021x] = map[string]dbus.Variant{
			"eap":         dbus.MakeVariant([]string{"peap"}),
			"identity":    dbus.MakeVariant(c.Identity),
			"password":    dbus.MakeVariant(c.Passphrase),
			"phase2-auth": dbus.MakeVariant("mschapv2"),
		}
	}

	if _, secured := settings[settingSecurity]; secured {
		settings[settingWireless]["security"] = dbus.MakeVariant(settingSecurity)
	}

	return settings
}

// NM_WEP_KEY_TYPE_KEY for raw 40/104-bit keys, NM_WEP_KEY_TYPE_PASSPHRASE
// otherwise.
func wepKeyType(key string) uint32 {
	switch len(key) {
	case 5, 13:
		return 1
	case 10, 26:
		for _, c := range key {
			if !isHex(c) {
				return 2
			}
		}
		return 1
	}
	return 2
}

func isHex(c rune) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

// hotspotSettings builds an access-point profile that serves gateway/24
// on the device. WPA2-PSK is used when a passphrase is given.
func hotspotSettings(ssid, passphrase string, gateway netip.Addr) connectionSettings {
	settings := connectionSettings{
		settingConnection: {
			"id":          dbus.MakeVariant(ssid),
			"type":        dbus.MakeVariant(wificonnect.CONNECTION_KIND_WIRELESS),
			"autoconnect": dbus.MakeVariant(false),
		},
		settingWireless: {
			"ssid": dbus.MakeVariant([]byte(ssid)),
			"mode": dbus.MakeVariant(wificonnect.WIRELESS_MODE_AP),
			"band": dbus.MakeVariant("bg"),
		},
		settingIPv4: {
			"method": dbus.MakeVariant("manual"),
			"address-data": dbus.MakeVariant([]map[string]dbus.Variant{{
				"address": dbus.MakeVariant(gateway.String()),
				"prefix":  dbus.MakeVariant(hotspotPrefix),
			}}),
		},
		settingIPv6: {
			"method": dbus.MakeVariant("ignore"),
		},
	}

	if passphrase != "" {
		settings[settingWireless]["security"] = dbus.MakeVariant(settingSecurity)
		settings[settingSecurity] = map[string]dbus.Variant{
			"key-mgmt": dbus.MakeVariant("wpa-psk"),
			"psk":      dbus.MakeVariant(passphrase),
			"proto":    dbus.MakeVariant([]string{"rsn"}),
			"pairwise": dbus.MakeVariant([]string{"ccmp"}),
			"group":    dbus.MakeVariant([]string{"ccmp"}),
		}
	}

	return settings
}
