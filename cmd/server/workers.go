package main

import (
	"context"

	"livepoll/internal/service"
	"livepoll/internal/transport/ws"
)

// workers runs the dispatch loop and the optional write-behind persister,
// each under its own context so they can be stopped in order
type workers struct {
	protocol      *ws.Protocol
	persister     *service.Persister
	stopProtocol  context.CancelFunc
	stopPersister context.CancelFunc
}

func startWorkers(protocol *ws.Protocol, persister *service.Persister) *workers {
	protoCtx, protoCancel := context.WithCancel(context.Background())
	persistCtx, persistCancel := context.WithCancel(context.Background())
	w := &workers{
		protocol:      protocol,
		persister:     persister,
		stopProtocol:  protoCancel,
		stopPersister: persistCancel,
	}

	go protocol.Run(protoCtx)
	if persister != nil {
		go persister.Run(persistCtx)
	}
	return w
}

// stop ends dispatch first; the persister flushes only once no more
// mutations can reach it
func (w *workers) stop() {
	w.stopProtocol()
	<-w.protocol.Done()

	w.stopPersister()
	if w.persister != nil {
		<-w.persister.Done()
	}
}
