package waha

import "github.com/TheLucianoBraga/zapgestor/internal/port/gateway"

func init() {
	gateway.Register(providerName, func(cfg map[string]string) (gateway.Gateway, error) {
		return NewClient(cfg["base_url"], cfg["api_key"], cfg["webhook_url"]), nil
	})
}
