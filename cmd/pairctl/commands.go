package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/owen-ho/enroot-qr-pairing/internal/database"
	"github.com/owen-ho/enroot-qr-pairing/internal/repositories"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
)

func migrateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the participants and pairings tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := database.Migrate(a.db); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "schema up to date")
			return nil
		},
	}
}

func statsCmd(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show population counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			stats, err := a.engine.Stats(cmd.Context())
			if err != nil {
				return err
			}
			if asJSON {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(stats)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "total:           %d\n", stats.Total)
			fmt.Fprintf(out, "paired:          %d\n", stats.Paired)
			fmt.Fprintf(out, "waiting:         %d\n", stats.Waiting)
			fmt.Fprintf(out, "active pairings: %d\n", stats.ActivePairings)
			fmt.Fprintf(out, "left:            %d\n", stats.Left)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&asJSON, "json", "j", false, "output as JSON")
	return cmd
}

func participantsCmd(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:     "participants",
		Aliases: []string{"ls", "roster"},
		Short:   "List participants that have not left, newest first",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			roster, err := a.engine.Roster(cmd.Context())
			if err != nil {
				return err
			}
			if asJSON {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(roster)
			}
			if len(roster) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no participants")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), rosterTable(roster))
			return nil
		},
	}
	cmd.Flags().BoolVarP(&asJSON, "json", "j", false, "output as JSON")
	return cmd
}

func rosterTable(roster []repositories.RosterEntry) string {
	rows := make([][]string, 0, len(roster))
	for _, e := range roster {
		pairingID, partner := "-", "-"
		if e.PairingID != nil {
			pairingID = strconv.FormatUint(uint64(*e.PairingID), 10)
		}
		if e.PartnerHandle != nil {
			partner = *e.PartnerHandle
		}
		rows = append(rows, []string{
			strconv.FormatUint(uint64(e.ID), 10),
			e.Handle,
			string(e.Status),
			e.JoinedAt.Local().Format(time.DateTime),
			pairingID,
			partner,
		})
	}
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers("ID", "HANDLE", "STATUS", "JOINED", "PAIRING", "PARTNER").
		Rows(rows...).
		String()
}

func pairCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "pair <idA> <idB>",
		Short: "Pair two waiting participants",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			idA, err := parseID(args[0])
			if err != nil {
				return err
			}
			idB, err := parseID(args[1])
			if err != nil {
				return err
			}
			p, err := a.engine.AdminPair(cmd.Context(), idA, idB)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "pairing %d: %s <-> %s\n", p.ID, p.ParticipantA.Handle, p.ParticipantB.Handle)
			return nil
		},
	}
}

func unpairCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "unpair <pairingId>",
		Short: "Break an active pairing without rematching either side",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if _, err := a.engine.AdminUnpair(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "pairing %d broken\n", id)
			return nil
		},
	}
}

func removeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>",
		Short: "Mark a participant as left and release its partner",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := a.engine.Remove(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "participant %d removed\n", id)
			return nil
		},
	}
}

func revokeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "revoke <id>",
		Short: "Invalidate a participant's credential",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := a.engine.RevokeCredential(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "credential of participant %d revoked\n", id)
			return nil
		},
	}
}

func resetCmd(a *app) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete every participant and pairing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !yes {
				return errors.New("reset deletes all data, pass --yes to confirm")
			}
			if err := a.engine.Reset(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "all participants and pairings deleted")
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm the reset")
	return cmd
}

func parseID(raw string) (uint, error) {
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid id %q", raw)
	}
	return uint(id), nil
}
