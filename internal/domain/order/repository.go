package order

import "github.com/get-eventually/logistics/aggregate"

// Getter is the interface used to fetch Orders from a persistent store.
type Getter = aggregate.Getter[ID, *Order]

// Saver is the interface used to persist new Order state changes.
type Saver = aggregate.Saver[ID, *Order]

// Repository is the interface used to fetch and persist Orders.
type Repository = aggregate.Repository[ID, *Order]
