/*
Package ports defines the driven ports (interfaces) of the prompt coordinator.

These interfaces decouple the coordinator from external implementations, so
the same Plug can journal responses in memory or in Redis and coordinate
ownership of a station across replicas.

# Key Interfaces

  - Journal: Records every accepted response (the diagnostic "last response" trail).
  - DistributedLocker: Provides distributed locking so one daemon serves a station.
*/
package ports
