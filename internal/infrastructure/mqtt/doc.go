// Package mqtt publishes Bonsai log events to an MQTT broker.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Message publishing with QoS guarantees
//   - Topic subscriptions with wildcard support
//   - Last Will and Testament (LWT) for offline detection
//   - A bonsai driver that publishes events through a bounded queue
//   - Remote filter control over a subscribed topic
//
// # Topics
//
// Every topic lives under a configurable prefix (default "bonsai"):
//
//	<prefix>/log/<level>      one event.Record per admitted event
//	<prefix>/store            one event.Record per store payload
//	<prefix>/system/status    retained online/offline status (LWT)
//	<prefix>/control/filter   {"minimum_level": "...", "debug_focus": bool}
//
// # Security Considerations
//
//   - Enable TLS (cfg.Broker.TLS=true) when the broker is not on loopback
//   - Anyone who can publish to the control topic can change the filter;
//     restrict it with broker ACLs
//
// # Usage
//
//	client, err := mqtt.Connect(ctx, cfg.MQTT, instanceID)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	driver := mqtt.NewDriver(client, mqtt.DriverConfig{
//	    Topics:     client.Topics(),
//	    QoS:        client.QoS(),
//	    BufferSize: cfg.MQTT.BufferSize,
//	    Instance:   instanceID,
//	})
//	facade.Register(driver)
//
//	_ = mqtt.SubscribeFilterControl(client, facade)
package mqtt
