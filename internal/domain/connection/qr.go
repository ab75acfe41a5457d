package connection

import (
	"encoding/base64"
	"net/url"
	"strings"
)

// QRRenderEndpoint is the public QR image service used to render legacy
// raw payloads that predate gateways returning ready-made images.
const QRRenderEndpoint = "https://api.qrserver.com/v1/create-qr-code/"

// QRImage is a renderable QR code: either a data URI or an HTTPS URL
// pointing at a rendered image.
type QRImage string

// QRFromPNG wraps raw PNG bytes in a data URI.
func QRFromPNG(png []byte) QRImage {
	return QRImage("data:image/png;base64," + base64.StdEncoding.EncodeToString(png))
}

// QRFromBase64 wraps an already base64-encoded payload in a data URI.
// Some vendors return the full data URI themselves; those pass through
// untouched.
func QRFromBase64(b64 string) QRImage {
	if strings.HasPrefix(b64, "data:") {
		return QRImage(b64)
	}
	return QRImage("data:image/png;base64," + b64)
}

// ResolveQR turns a stored QR value into a renderable image. Values
// prefixed "raw:" are legacy pairing payloads that must be rendered by
// the external QR image service, with the payload URL-encoded.
func ResolveQR(value string) QRImage {
	if raw, ok := strings.CutPrefix(value, "raw:"); ok {
		return QRImage(QRRenderEndpoint + "?size=300x300&data=" + url.QueryEscape(raw))
	}
	return QRImage(value)
}
