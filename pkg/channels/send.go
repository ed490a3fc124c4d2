package channels

// SendNonBlock attempts to send a message without blocking.
// Returns ErrChannelFull if nobody can take it right now and ErrChannelClosed
// if the channel has been closed.
func SendNonBlock[T any](ch chan<- T, msg T) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = ErrChannelClosed
		}
	}()

	select {
	case ch <- msg:
		return nil
	default:
		return ErrChannelFull
	}
}

// Drain returns everything currently buffered in ch without blocking.
func Drain[T any](ch <-chan T) []T {
	var out []T

	for {
		select {
		case v, ok := <-ch:
			if !ok {
				return out
			}

			out = append(out, v)
		default:
			return out
		}
	}
}
