// Package dump saves analysis results for later inspection and serves them
// back.
//
// Results are first collected into Data, a plain serializable form. Data is
// then written as a directory of JSON files with DOT renderings of borrow
// graphs, into a SQLite database, or both. A Viewer serves a database over a
// read-only JSON API.
//
// JSON directory layout:
//
//	block_N_iterations.json             entry states of every fixpoint visit
//	block_N_entry.dot                   borrow graph at the block entry
//	block_N_stmt_M_pcg_data.json        phase states and actions of an instruction
//	block_N_term_block_M_pcg_data.json  actions on the edge to a successor
//	node_legend.dot, edge_legend.dot    graph styles
//	reports.json                        failed consistency checks
package dump
