// Copyright (c) 2020-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.
//

// Package supervisor runs the background loops of the server.
package supervisor

import "time"

// run calls work immediately and then every interval until stop is closed.
func run(interval time.Duration, stop <-chan struct{}, done chan<- struct{}, work func()) {
	defer close(done)
	for {
		work()
		select {
		case <-time.After(interval):
		case <-stop:
			return
		}
	}
}
