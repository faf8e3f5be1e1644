package main

import (
	"github.com/spf13/cobra"

	"villa_dnft/internal/app"
)

var (
	bName        string
	bDescription string
	bImage       string
	bScore       int
	bOccupied    bool
	bEvidence    string
	bGallery     string
	bTags        string
	bRecipient   string
	bVilla       string
	bActive      bool
	bRenovatedAt string
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build a villa call (prints it, or submits with --submit)",
}

var buildMintCmd = &cobra.Command{
	Use:   "mint",
	Short: "Mint a new villa",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runOp(cmd.Context(), app.MintVilla{
			Name:           bName,
			Description:    bDescription,
			ImageURL:       bImage,
			ConditionScore: bScore,
			Occupied:       bOccupied,
			EvidenceURI:    bEvidence,
			GalleryURI:     bGallery,
			Tags:           bTags,
			Recipient:      bRecipient,
		})
	},
}

var buildInspectionCmd = &cobra.Command{
	Use:   "inspection",
	Short: "Record a property inspection",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runOp(cmd.Context(), app.RecordInspection{
			VillaID:        bVilla,
			ConditionScore: bScore,
			EvidenceURI:    bEvidence,
			Tags:           bTags,
		})
	},
}

var buildMaintenanceCmd = &cobra.Command{
	Use:   "maintenance",
	Short: "Start or finish maintenance",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runOp(cmd.Context(), app.SetMaintenance{VillaID: bVilla, Active: bActive, RenovatedAtMs: bRenovatedAt})
	},
}

var buildOccupancyCmd = &cobra.Command{
	Use:   "occupancy",
	Short: "Mark a villa occupied or vacant",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runOp(cmd.Context(), app.SetOccupancy{VillaID: bVilla, Occupied: bOccupied})
	},
}

func init() {
	buildCmd.PersistentFlags().BoolVar(&flagSubmit, "submit", false, "sign through the wallet bridge and execute")

	f := buildMintCmd.Flags()
	f.StringVar(&bName, "name", "", "villa name")
	f.StringVar(&bDescription, "description", "", "description")
	f.StringVar(&bImage, "image", "", "image url")
	f.IntVar(&bScore, "score", 0, "condition score 0-100")
	f.BoolVar(&bOccupied, "occupied", false, "occupied at mint")
	f.StringVar(&bEvidence, "evidence", "", "inspection evidence uri")
	f.StringVar(&bGallery, "gallery", "", "gallery uri")
	f.StringVar(&bTags, "tags", "", "comma-separated tags")
	f.StringVar(&bRecipient, "recipient", "", "recipient address (defaults to the sender)")
	_ = buildMintCmd.MarkFlagRequired("name")

	f = buildInspectionCmd.Flags()
	f.StringVar(&bVilla, "villa", "", "villa object id")
	f.IntVar(&bScore, "score", 0, "condition score 0-100")
	f.StringVar(&bEvidence, "evidence", "", "inspection evidence uri")
	f.StringVar(&bTags, "tags", "", "comma-separated tags")

	f = buildMaintenanceCmd.Flags()
	f.StringVar(&bVilla, "villa", "", "villa object id")
	f.BoolVar(&bActive, "active", false, "maintenance in progress")
	f.StringVar(&bRenovatedAt, "renovated-at", "", "renovation time in unix ms (blank for none)")

	f = buildOccupancyCmd.Flags()
	f.StringVar(&bVilla, "villa", "", "villa object id")
	f.BoolVar(&bOccupied, "occupied", false, "occupied")

	buildCmd.AddCommand(buildMintCmd, buildInspectionCmd, buildMaintenanceCmd, buildOccupancyCmd)
}
