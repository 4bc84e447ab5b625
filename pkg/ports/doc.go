/*
Package ports defines the driven ports (interfaces) for the pacer engine.

These interfaces decouple the execution core from external implementations,
allowing the engine to work with various configuration backends, actuators and
lock providers.

# Key Interfaces

  - ConfigPersister: reads and writes the raw pattern document (file, Redis, SQLite, Loam, memory).
  - Actuator: applies one positional command to a physical or simulated device.
  - Watchable: signals that the persisted document changed and a reload is required.
  - DistributedLocker: serializes configuration writes across several instances.
  - Engine: the command surface consumed by the HTTP and MCP boundaries.
*/
package ports
