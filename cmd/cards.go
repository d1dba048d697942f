package cmd

import (
	"fmt"
	"strconv"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/theirongolddev/smartpay/internal/cli"
	"github.com/theirongolddev/smartpay/internal/finance"
	"github.com/theirongolddev/smartpay/internal/model"
	"github.com/theirongolddev/smartpay/internal/validator"
)

var (
	flagCardBank    string
	flagCardName    string
	flagCardBalance float64
	flagCardLimit   float64
	flagCardDue     string
	flagCardMinimum float64
	flagCardRate    float64

	flagTxnDesc     string
	flagTxnAmount   float64
	flagTxnCategory string
	flagTxnDate     string
)

var cardsCmd = &cobra.Command{
	Use:     "cards",
	Aliases: []string{"card"},
	Short:   "List and manage credit cards",
	RunE:    runCardsList,
}

var cardsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List cards",
	RunE:  runCardsList,
}

var cardsAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a card (prompts for missing fields)",
	RunE:  runCardsAdd,
}

var cardsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show card details, transactions and spend by category",
	Args:  cobra.ExactArgs(1),
	RunE:  runCardsShow,
}

var cardsUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Change card fields from flags",
	Args:  cobra.ExactArgs(1),
	RunE:  runCardsUpdate,
}

var cardsDeleteCmd = &cobra.Command{
	Use:     "delete <id>",
	Aliases: []string{"rm"},
	Short:   "Delete a card",
	Args:    cobra.ExactArgs(1),
	RunE:    runCardsDelete,
}

var cardsTxnCmd = &cobra.Command{
	Use:   "txn",
	Short: "Card transactions",
}

var cardsTxnAddCmd = &cobra.Command{
	Use:   "add <card-id>",
	Short: "Record a transaction on a card",
	Args:  cobra.ExactArgs(1),
	RunE:  runTxnAdd,
}

func cardFlags(fs *pflag.FlagSet) {
	fs.StringVar(&flagCardBank, "bank", "", "Issuing bank")
	fs.StringVar(&flagCardName, "name", "", "Card name")
	fs.Float64Var(&flagCardBalance, "balance", 0, "Current balance")
	fs.Float64Var(&flagCardLimit, "limit", 0, "Credit limit")
	fs.StringVar(&flagCardDue, "due", "", "Next payment date (YYYY-MM-DD)")
	fs.Float64Var(&flagCardMinimum, "minimum", 0, "Minimum payment")
	fs.Float64Var(&flagCardRate, "rate", 0, "Monthly interest rate in percent")
}

func init() {
	cardFlags(cardsAddCmd.Flags())
	cardFlags(cardsUpdateCmd.Flags())

	cardsTxnAddCmd.Flags().StringVar(&flagTxnDesc, "desc", "", "Description")
	cardsTxnAddCmd.Flags().Float64Var(&flagTxnAmount, "amount", 0, "Amount; negative for payments and refunds")
	cardsTxnAddCmd.Flags().StringVar(&flagTxnCategory, "category", "", "Category")
	cardsTxnAddCmd.Flags().StringVar(&flagTxnDate, "date", "", "Date (YYYY-MM-DD, default today)")
	_ = cardsTxnAddCmd.MarkFlagRequired("amount")

	cardsTxnCmd.AddCommand(cardsTxnAddCmd)
	cardsCmd.AddCommand(cardsListCmd, cardsAddCmd, cardsShowCmd, cardsUpdateCmd, cardsDeleteCmd, cardsTxnCmd)
	rootCmd.AddCommand(cardsCmd)
}

func runCardsList(_ *cobra.Command, _ []string) error {
	s := openSession()
	defer s.Close()

	if err := s.requireAuth(); err != nil {
		return err
	}
	cards := s.Cards()
	if len(cards) == 0 {
		fmt.Println("\n  No cards yet. Add one with `smartpay cards add`.")
		return nil
	}

	now := time.Now()
	rows := make([][]string, 0, len(cards)+2)
	for _, c := range cards {
		due := c.NextPaymentDate
		if days, err := finance.DaysUntilPayment(c, now); err == nil {
			due += " (" + cli.FormatDaysUntil(days) + ")"
		}
		rows = append(rows, []string{
			c.ID,
			c.Bank + " " + c.CardName,
			fmtr.Money(c.Balance),
			fmtr.Money(c.CreditLimit),
			cli.FormatUtilization(finance.Utilization(c)),
			due,
		})
	}
	p := finance.Summarize(cards, now)
	rows = append(rows, []string{"---"})
	rows = append(rows, []string{"Total", "", fmtr.Money(p.TotalDebt), fmtr.Money(p.TotalLimit),
		cli.FormatUtilization(p.Utilization, p.TotalLimit > 0), ""})

	fmt.Println()
	fmt.Print(cli.RenderTable(cli.Table{
		Title:   fmt.Sprintf("Cards (%d)", len(cards)),
		Headers: []string{"ID", "Card", "Balance", "Limit", "Use", "Next payment"},
		Rows:    rows,
	}))
	fmt.Println()
	return nil
}

func runCardsAdd(cmd *cobra.Command, _ []string) error {
	s := openSession()
	defer s.Close()

	if err := s.requireAuth(); err != nil {
		return err
	}

	card := model.CreditCard{
		Bank:            flagCardBank,
		CardName:        flagCardName,
		Balance:         flagCardBalance,
		CreditLimit:     flagCardLimit,
		NextPaymentDate: flagCardDue,
		MinimumPayment:  flagCardMinimum,
		InterestRate:    flagCardRate,
	}
	if card.Bank == "" || card.CardName == "" || card.CreditLimit <= 0 || card.NextPaymentDate == "" {
		if err := runCardForm(&card); err != nil {
			return err
		}
	}
	if err := validator.Struct(card.Fields()); err != nil {
		return err
	}

	id := s.AddCard(card)
	fmt.Printf("  Added %s %s (id %s)\n", card.Bank, card.CardName, id)
	return nil
}

func runCardForm(c *model.CreditCard) error {
	amount := func(v float64) string {
		if v == 0 {
			return ""
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	balance, limit := amount(c.Balance), amount(c.CreditLimit)
	minimum, rate := amount(c.MinimumPayment), amount(c.InterestRate)
	if c.Bank == "" {
		c.Bank = model.Banks[0]
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().Title("Bank").Options(huh.NewOptions(model.Banks...)...).Value(&c.Bank),
			huh.NewInput().Title("Card name").Value(&c.CardName).Validate(huh.ValidateNotEmpty()),
		),
		huh.NewGroup(
			huh.NewInput().Title("Current balance").Value(&balance).Validate(validateOptionalAmount),
			huh.NewInput().Title("Credit limit").Value(&limit).Validate(validateAmount),
			huh.NewInput().Title("Next payment date").Placeholder("2025-01-15").Value(&c.NextPaymentDate).
				Validate(validateDate),
			huh.NewInput().Title("Minimum payment").Value(&minimum).Validate(validateOptionalAmount),
			huh.NewInput().Title("Monthly interest rate (%)").Value(&rate).Validate(validateOptionalAmount),
		),
	)
	if err := form.Run(); err != nil {
		return err
	}

	for _, f := range []struct {
		raw string
		dst *float64
	}{{balance, &c.Balance}, {limit, &c.CreditLimit}, {minimum, &c.MinimumPayment}, {rate, &c.InterestRate}} {
		if f.raw == "" {
			*f.dst = 0
			continue
		}
		v, err := parseAmount(f.raw)
		if err != nil {
			return err
		}
		*f.dst = v
	}
	return nil
}

func runCardsShow(_ *cobra.Command, args []string) error {
	s := openSession()
	defer s.Close()

	if err := s.requireAuth(); err != nil {
		return err
	}
	c, ok := s.GetCard(args[0])
	if !ok {
		return fmt.Errorf("card %s not found", args[0])
	}

	now := time.Now()
	due := c.NextPaymentDate
	if days, err := finance.DaysUntilPayment(c, now); err == nil {
		due += " (" + cli.FormatDaysUntil(days) + ")"
	}

	fmt.Println()
	fmt.Println(cli.RenderTitle(c.Bank + "  " + c.CardName))
	fmt.Println()
	fmt.Print(cli.RenderKV([][2]string{
		{"ID", c.ID},
		{"Balance", fmtr.Money(c.Balance)},
		{"Credit limit", fmtr.Money(c.CreditLimit)},
		{"Available", fmtr.Money(finance.AvailableCredit(c))},
		{"Utilization", utilizationBar(c)},
		{"Interest rate", fmt.Sprintf("%.2f%% monthly", c.InterestRate)},
		{"Interest (est)", fmtr.Money(finance.EstimatedInterest(c))},
		{"Minimum payment", fmtr.Money(c.MinimumPayment)},
		{"Next payment", due},
	}))
	fmt.Println()

	if len(c.Transactions) == 0 {
		fmt.Println("  No transactions recorded.")
		return nil
	}

	rows := make([][]string, 0, len(c.Transactions))
	for _, tx := range c.Transactions {
		rows = append(rows, []string{tx.Date, tx.Description, orDash(tx.Category), fmtr.Money(tx.Amount)})
	}
	fmt.Print(cli.RenderTable(cli.Table{
		Title:   "Transactions",
		Headers: []string{"Date", "Description", "Category", "Amount"},
		Rows:    rows,
	}))

	if breakdown := finance.CategoryBreakdown(c.Transactions); len(breakdown) > 0 {
		brows := make([][]string, 0, len(breakdown))
		for _, b := range breakdown {
			brows = append(brows, []string{b.Category, fmtr.Money(b.Amount), cli.FormatPercent(b.Share)})
		}
		fmt.Println()
		fmt.Print(cli.RenderTable(cli.Table{
			Title:   "Spend by category",
			Headers: []string{"Category", "Amount", "Share"},
			Rows:    brows,
		}))
	}
	fmt.Println()
	return nil
}

func runCardsUpdate(cmd *cobra.Command, args []string) error {
	s := openSession()
	defer s.Close()

	if err := s.requireAuth(); err != nil {
		return err
	}

	patch := patchFromFlags(cmd.Flags())
	if patch.IsEmpty() {
		return fmt.Errorf("nothing to update; pass at least one of --bank, --name, --balance, --limit, --due, --minimum, --rate")
	}
	if err := validator.Struct(patch); err != nil {
		return err
	}
	if !s.UpdateCard(args[0], patch) {
		return fmt.Errorf("card %s not found", args[0])
	}
	fmt.Printf("  Updated card %s\n", args[0])
	return nil
}

// patchFromFlags sets only the fields whose flags were given.
func patchFromFlags(fs *pflag.FlagSet) model.CardPatch {
	var p model.CardPatch
	if fs.Changed("bank") {
		p.Bank = &flagCardBank
	}
	if fs.Changed("name") {
		p.CardName = &flagCardName
	}
	if fs.Changed("balance") {
		p.Balance = &flagCardBalance
	}
	if fs.Changed("limit") {
		p.CreditLimit = &flagCardLimit
	}
	if fs.Changed("due") {
		p.NextPaymentDate = &flagCardDue
	}
	if fs.Changed("minimum") {
		p.MinimumPayment = &flagCardMinimum
	}
	if fs.Changed("rate") {
		p.InterestRate = &flagCardRate
	}
	return p
}

func runCardsDelete(_ *cobra.Command, args []string) error {
	s := openSession()
	defer s.Close()

	if err := s.requireAuth(); err != nil {
		return err
	}
	if !s.DeleteCard(args[0]) {
		return fmt.Errorf("card %s not found", args[0])
	}
	fmt.Printf("  Deleted card %s\n", args[0])
	return nil
}

func runTxnAdd(_ *cobra.Command, args []string) error {
	s := openSession()
	defer s.Close()

	if err := s.requireAuth(); err != nil {
		return err
	}

	date := flagTxnDate
	if date == "" {
		date = time.Now().Format(model.DateLayout)
	}
	tx := model.Transaction{
		Description: flagTxnDesc,
		Amount:      flagTxnAmount,
		Category:    flagTxnCategory,
		Date:        date,
	}
	if err := validator.Struct(tx); err != nil {
		return err
	}

	tx, ok := s.AddTransaction(args[0], tx)
	if !ok {
		return fmt.Errorf("card %s not found", args[0])
	}
	fmt.Printf("  Recorded %s on card %s (id %s)\n", fmtr.Money(tx.Amount), args[0], tx.ID)
	return nil
}

func validateOptionalAmount(raw string) error {
	if raw == "" {
		return nil
	}
	return validateAmount(raw)
}

func validateDate(raw string) error {
	if _, err := time.Parse(model.DateLayout, raw); err != nil {
		return fmt.Errorf("%q is not a date like 2025-01-15", raw)
	}
	return nil
}

func utilizationBar(c model.CreditCard) string {
	u, ok := finance.Utilization(c)
	return cli.RenderUtilizationBar(u, ok, 20)
}
