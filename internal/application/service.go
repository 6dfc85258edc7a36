// Package application holds the room use cases shared by the REST surface and
// the websocket gateway.
package application

import (
	"github.com/SARVESHVARADKAR123/RealChat/rooms/internal/broker"
	"github.com/SARVESHVARADKAR123/RealChat/rooms/internal/directory"
	"github.com/SARVESHVARADKAR123/RealChat/rooms/internal/identity"
)

type Service struct {
	dir      *directory.Directory
	broker   *broker.Broker
	profiles identity.Profiles
}

func New(dir *directory.Directory, b *broker.Broker, profiles identity.Profiles) *Service {
	return &Service{dir: dir, broker: b, profiles: profiles}
}
