package config

import (
	"strings"

	"github.com/billgraziano/dpapi"
)

// Remote bot tokens are encrypted at rest with the Windows DPAPI, tied to the
// local user account, so the YAML file can be shared or backed up without
// leaking credentials. Encrypted values carry a prefix to stay distinguishable
// from tokens pasted in clear by hand.
const encryptedPrefix = "dpapi:"

func encryptRemoteTokens(cfg *KantoCfg) {
	cfg.Discord.Token = encryptToken(cfg.Discord.Token)
	cfg.Telegram.Token = encryptToken(cfg.Telegram.Token)
	cfg.Ngrok.Authtoken = encryptToken(cfg.Ngrok.Authtoken)
}

func decryptRemoteTokens(cfg *KantoCfg) {
	cfg.Discord.Token = decryptToken(cfg.Discord.Token)
	cfg.Telegram.Token = decryptToken(cfg.Telegram.Token)
	cfg.Ngrok.Authtoken = decryptToken(cfg.Ngrok.Authtoken)
}

func encryptToken(token string) string {
	if token == "" || strings.HasPrefix(token, encryptedPrefix) {
		return token
	}
	enc, err := dpapi.Encrypt(token)
	if err != nil {
		// keep the clear value rather than corrupting the config
		return token
	}
	return encryptedPrefix + enc
}

func decryptToken(token string) string {
	if !strings.HasPrefix(token, encryptedPrefix) {
		return token
	}
	dec, err := dpapi.Decrypt(strings.TrimPrefix(token, encryptedPrefix))
	if err != nil {
		return ""
	}
	return dec
}
