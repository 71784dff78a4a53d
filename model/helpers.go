// Copyright (c) 2020-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.
//

package model

import (
	"time"

	cloudModel "github.com/mattermost/mattermost-cloud/model"
)

// GetMillis is a convenience method to get milliseconds since epoch.
func GetMillis() int64 {
	return time.Now().UnixNano() / int64(time.Millisecond)
}

// MillisFromTime converts the given time to milliseconds since epoch.
func MillisFromTime(t time.Time) int64 {
	return t.UnixNano() / int64(time.Millisecond)
}

// NewID returns a new random identifier.
func NewID() string {
	return cloudModel.NewID()
}
