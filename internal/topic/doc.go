// Package topic is the client side of the GoHome push channel.
//
// The server exposes one websocket endpoint (/ws). A client subscribes a
// socket to a topic by sending {"action":"subscribe","topic":T}; the
// server then delivers {"topic":T,"message":...} frames. A Subscription
// wraps one such socket:
//
//	sub := topic.SubscribeJSON(ctx, "ws://localhost:8080/ws", topic.BluetoothDevice,
//	    func(peer topic.BluetoothPeer) { ... },
//	    topic.WithStateHandler(func(up bool) { ... }))
//	defer sub.Close()
//
// There is no reconnect, acknowledgement or queueing. When the socket
// drops, the subscription is over; callers resubscribe if they need to.
package topic
