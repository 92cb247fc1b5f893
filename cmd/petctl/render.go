package main

import (
	"fmt"
	"io"

	"github.com/danmuck/tamactl/internal/pet"
	"github.com/danmuck/tamactl/internal/protocol/wire"
	"github.com/jedib0t/go-pretty/v6/table"
)

func renderResults(out io.Writer, title string, results []stepResult) {
	tw := table.NewWriter()
	tw.SetOutputMirror(out)
	if title != "" {
		tw.SetTitle(title)
	}
	tw.AppendHeader(table.Row{"#", "Block", "Actor", "Action", "Reply", "Outcome"})
	for _, r := range results {
		tw.AppendRow(table.Row{r.Index, r.Block, r.Actor, r.Action, r.Reply, r.Outcome})
	}
	tw.Render()
}

func renderState(out io.Writer, st wire.State, now uint64) {
	levels := pet.CurrentLevels(st, now)
	tw := table.NewWriter()
	tw.SetOutputMirror(out)
	tw.SetTitle(fmt.Sprintf("%s @ block %d", st.Name, now))
	tw.AppendHeader(table.Row{"Field", "Value"})
	tw.AppendRow(table.Row{"owner", st.Owner.Short()})
	tw.AppendRow(table.Row{"born", st.BirthTime})
	tw.AppendRow(table.Row{"fullness", levels.Fullness})
	tw.AppendRow(table.Row{"entertainment", levels.Entertainment})
	tw.AppendRow(table.Row{"rest", levels.Rest})
	operator := "-"
	if st.Operator != nil {
		operator = st.Operator.Short()
	}
	tw.AppendRow(table.Row{"operator", operator})
	tw.AppendRow(table.Row{"token", st.TokenActor.Short()})
	pending := "-"
	if st.PendingApproval != nil {
		pending = fmt.Sprintf("tx=%d amount=%s", st.PendingApproval.TxID, st.PendingApproval.Amount)
	}
	tw.AppendRow(table.Row{"pending approval", pending})
	tw.AppendRow(table.Row{"reservations", len(st.Reservations)})
	tw.Render()
}
