// Copyright (c) 2020-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.
//

package daraja

import (
	"encoding/base64"
	"time"
)

// TimestampLayout is the provider's YYYYMMDDHHmmss timestamp format.
const TimestampLayout = "20060102150405"

// The provider validates timestamps against East Africa Time.
var eastAfricaTime = time.FixedZone("EAT", 3*60*60)

// NewTimestamp formats t as a request timestamp.
func NewTimestamp(t time.Time) string {
	return t.In(eastAfricaTime).Format(TimestampLayout)
}

// Password derives the push payment password from the short code, passkey
// and request timestamp.
func Password(shortCode, passkey, timestamp string) string {
	return base64.StdEncoding.EncodeToString([]byte(shortCode + passkey + timestamp))
}

// Signer produces the password and timestamp pair for a single request
// attempt. Every call to Sign captures a fresh timestamp.
type Signer struct {
	shortCode string
	passkey   string
	now       func() time.Time
}

// NewSigner creates a Signer. A nil now defaults to time.Now.
func NewSigner(shortCode, passkey string, now func() time.Time) *Signer {
	if now == nil {
		now = time.Now
	}
	return &Signer{
		shortCode: shortCode,
		passkey:   passkey,
		now:       now,
	}
}

// ShortCode returns the business short code the signer signs for.
func (s *Signer) ShortCode() string {
	return s.shortCode
}

// Sign returns the password and the timestamp it was derived from.
func (s *Signer) Sign() (password, timestamp string) {
	timestamp = NewTimestamp(s.now())
	return Password(s.shortCode, s.passkey, timestamp), timestamp
}
