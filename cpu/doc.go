// Package cpu implements the processor and assembler for a 16-bit LC-3
// style stored-program machine.
//
// The CPU consists of a program counter (PC) loaded with 0x3000 at reset,
// eight 16-bit general-purpose registers (R0-R7), and a processor status
// register whose low three bits hold the N/Z/P condition codes. It addresses
// a flat 64K-word Memory in which two words are keyboard device registers.
//
// Faults (unknown opcodes, RTI, cancelled input, device failures) share one
// error type, Fault, and a Policy decides whether each kind is ignored, halts
// the machine, or aborts the run.
//
// The assembler accepts LC-3 assembly with labels and directives, plus
// .equ equates, macros, and $(...) compile-time expressions.
package cpu
