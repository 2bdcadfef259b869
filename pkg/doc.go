// Package pkg holds the tracemap libraries.
//
// # Overview
//
// tracemap lays out traceability diagrams: groups of requirements and
// measures connected by hierarchy (parent) and business (cross-link)
// relationships. The libraries are organized as:
//
//  1. [entity], [diag], [errors] - the data model, recoverable findings and coded errors
//  2. [collect], [relations] - deduplication, grouping and the relationship graph
//  3. [dag], [layout] - layered graph algorithms and the clustered and columnar layouts
//  4. [flow] - positioned nodes and edges for a flow canvas
//  5. [render] - SVG and Graphviz output
//  6. [pipeline], [cache], [io], [observability] - orchestration and plumbing
//
// # Architecture
//
//	entity.Snapshot
//	     ↓
//	collect.Collect      (one copy per entity, group assignment)
//	     ↓
//	relations.Build      (hierarchy + business relationships, multi-parent set)
//	     ↓
//	clustered / columnar (positions, group frames)
//	     ↓
//	flow.Build           (nodes, edges, handles)
//	     ↓
//	flow.Diagram JSON, SVG, DOT
//
// # Quick Start
//
//	snap, _ := io.ImportSnapshot("plan.toml")
//	report, err := pipeline.Run(ctx, snap, pipeline.Options{}, nil)
//	if err != nil {
//	    return err
//	}
//	for _, d := range report.Diagnostics {
//	    log.Warn(d.Message, "code", d.Code)
//	}
//	_ = io.ExportDiagram(report.Diagram, "plan.diagram.json")
//
// Diagnostics never stop a run: dangling references, duplicates and
// ungrouped entities are resolved and reported.
package pkg
