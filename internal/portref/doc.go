/*
Package portref provides the canonical textual form of a port reference,
`<node>.<port>`, used by project files for connections and by the processor
for output keys.

The node part may itself contain dots; the last dot separates the port.
*/
package portref
