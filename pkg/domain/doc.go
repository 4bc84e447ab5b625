/*
Package domain contains the core models of the pacer engine.

It defines the motion vocabulary (Step, Pattern, PatternSet), the execution
snapshot reported to observers, and the notifications published when the active
pattern changes. The package is kept free of I/O and persistence concerns,
following Hexagonal Architecture principles.

# Key Entities

  - Step: a relative displacement (DX, DY) plus a dwell Duration.
  - Pattern: a named, ordered list of Steps.
  - PatternSet: every configured Pattern, in configuration order, plus an optional Sensitivity.
  - Command: the scaled instruction handed to an actuator for one step.
  - PatternSelected: the notification emitted after the active pattern changes.
*/
package domain
