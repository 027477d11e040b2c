package broker

// OrderID identifies a queued order within one broker.
type OrderID uint64

// Order is a request to trade Size units of Instrument. Positive sizes buy,
// negative sizes sell.
//
// An order with ParentTrade set is contingent: it only closes that trade and
// does not count against the per-side trade cap.
type Order struct {
	ID         OrderID
	Instrument string
	Size       float64
	Limit      *float64
	Stop       *float64
	StopLoss   *float64
	TakeProfit *float64

	ParentTrade TradeID
	// Reason is recorded on the parent trade when a contingent order closes it.
	Reason string
}

func (o Order) IsBuy() bool { return o.Size > 0 }

func (o Order) IsContingent() bool { return o.ParentTrade != "" }

// Clone copies the order including its price pointers.
func (o Order) Clone() Order {
	c := o
	c.Limit = clonePrice(o.Limit)
	c.Stop = clonePrice(o.Stop)
	c.StopLoss = clonePrice(o.StopLoss)
	c.TakeProfit = clonePrice(o.TakeProfit)
	return c
}

// Price returns a pointer to v for the optional price fields of Order.
func Price(v float64) *float64 {
	return &v
}

func clonePrice(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
