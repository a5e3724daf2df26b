package mtp40f

// Consumer receives decoded sensor values.
type Consumer interface {
	Publish(value float64)
}

// ConsumerFunc adapts a function to a Consumer.
type ConsumerFunc func(value float64)

// Publish calls f(value).
func (f ConsumerFunc) Publish(value float64) { f(value) }

// Consumers fans a value out to every consumer in order.
type Consumers []Consumer

// Publish forwards value to each consumer.
func (cs Consumers) Publish(value float64) {
	for _, c := range cs {
		c.Publish(value)
	}
}

// PressureSource is an external air pressure sensor that pushes readings in hPa.
type PressureSource interface {
	Subscribe(fn func(hpa float64))
}
