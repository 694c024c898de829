/*
rowpipe runs batches of multi-part units of work through a fixed chain of stages, with a pool of goroutines per stage.

A unit of work (an image, for instance) is split into items (its rows). Every item travels the chain on its own and
the unit is rebuilt at the end, even though items of the same unit finish in any order.

The topology is:

- one Producer per unit pushes the unit's items, in order, into the first stage queue (shared by all producers)
- each stage owns a pool of workers. Workers race on the stage input queue, apply the stage transform and push to the next queue
- one (or several) Sorter drains the last queue and routes every item to the queue dedicated to its unit
- one Assembler per unit writes each item into the slot addressed by its index, and builds the unit once its queue is closed

Queues are bounded: a full queue stalls its writers, which is the only backpressure in the pipeline. Closing a queue is
a one-way "no more input" signal. Readers keep draining what is buffered and only then observe the end of the stream.

The shutdown order is the whole trick. A queue is closed only when every goroutine that could write to it has returned:
producers, then each stage in order, then the sorters. Closing earlier would let a late writer hit a closed queue, which
is reported as an InvariantError rather than silently dropped.

Goroutines of each tier live in their own ants pool, so a run never holds more goroutines than

	units (producers) + stages*workers + sorters + units (assemblers)

Cancellation is cooperative: every blocking queue operation also waits on the context, and a cancelled run returns the
context error with whatever units had already been assembled.
*/

package rowpipe
