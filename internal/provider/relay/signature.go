package relay

import (
	"crypto/hmac"
	"crypto/md5"
	"crypto/sha1"
	"encoding/base64"
	"encoding/hex"
	"sort"
	"strings"
)

// Sign computes the relay API request signature. The algorithm must match the
// provider byte-for-byte:
//
//  1. params joined as sorted "key=value" pairs with "&", unencoded;
//  2. lowercase-hex MD5 of that string, or the empty string when there are no
//     params (the provider does NOT use MD5("") here);
//  3. HMAC-SHA1 over method + path + params + md5, base64-encoded.
//
// The Authorization header value is "{apiKey}:{signature}".
func Sign(method, path string, params map[string]string, secretKey string) string {
	paramsString := canonicalParams(params)
	paramsMd5 := ""
	if paramsString != "" {
		sum := md5.Sum([]byte(paramsString))
		paramsMd5 = hex.EncodeToString(sum[:])
	}
	base := method + path + paramsString + paramsMd5
	mac := hmac.New(sha1.New, []byte(secretKey))
	mac.Write([]byte(base))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func canonicalParams(params map[string]string) string {
	if len(params) == 0 {
		return ""
	}
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+params[k])
	}
	return strings.Join(pairs, "&")
}
